package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullInt(v sql.NullInt32) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int32)
	return &i
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// floatArg passes a nullable score to the driver.
func floatArg(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func stringArg(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func timeArg(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// jsonOrDefault returns raw, or def when the column was empty.
func jsonOrDefault(raw []byte, def string) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(def)
	}
	return json.RawMessage(raw)
}

// nonNilStrings keeps pq.Array from encoding a nil slice as NULL.
func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
