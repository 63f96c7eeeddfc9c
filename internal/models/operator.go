package models

import "fmt"

// Operator is a numeric comparison used by alert rules and risk factor applicability.
type Operator string

const (
	OperatorGTE Operator = ">="
	OperatorGT  Operator = ">"
	OperatorLTE Operator = "<="
	OperatorLT  Operator = "<"
	OperatorEQ  Operator = "=="
)

// Operators lists every supported operator.
var Operators = []Operator{OperatorGTE, OperatorGT, OperatorLTE, OperatorLT, OperatorEQ}

// Valid reports whether op is one of Operators.
func (op Operator) Valid() bool {
	switch op {
	case OperatorGTE, OperatorGT, OperatorLTE, OperatorLT, OperatorEQ:
		return true
	}
	return false
}

// Compare evaluates "value op threshold".
func (op Operator) Compare(value, threshold float64) (bool, error) {
	switch op {
	case OperatorGTE:
		return value >= threshold, nil
	case OperatorGT:
		return value > threshold, nil
	case OperatorLTE:
		return value <= threshold, nil
	case OperatorLT:
		return value < threshold, nil
	case OperatorEQ:
		return value == threshold, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownOperator, string(op))
}
