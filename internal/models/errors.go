package models

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrIllegalTransition is returned when an alert cannot move to the requested status.
	ErrIllegalTransition = errors.New("illegal alert status transition")
	// ErrConflict is returned when a write collides with a unique constraint.
	ErrConflict = errors.New("conflict")
	// ErrUnknownOperator is returned for comparison operators outside Operators.
	ErrUnknownOperator = errors.New("unknown operator")
)
