package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NullTime is a thin wrapper around time.Time that implements
// sql.Scanner and driver.Valuer so nullable timestamp columns round-trip
// cleanly, and marshals to JSON null when unset.
type NullTime struct {
	Time  time.Time
	Valid bool
}

// NullTimeFrom wraps a concrete time as a set NullTime.
func NullTimeFrom(t time.Time) NullTime {
	return NullTime{Time: t, Valid: true}
}

// Scan implements sql.Scanner
func (n *NullTime) Scan(src interface{}) error {
	if n == nil {
		return fmt.Errorf("dbtypes: Scan on nil *NullTime")
	}
	if src == nil {
		*n = NullTime{}
		return nil
	}

	switch v := src.(type) {
	case time.Time:
		*n = NullTime{Time: v, Valid: true}
		return nil
	case []byte:
		t, err := time.Parse(time.RFC3339Nano, string(v))
		if err != nil {
			return err
		}
		*n = NullTime{Time: t, Valid: true}
		return nil
	default:
		return fmt.Errorf("dbtypes: cannot scan type %T into NullTime", src)
	}
}

// Value implements driver.Valuer
func (n NullTime) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Time, nil
}

// MarshalJSON emits the timestamp in RFC3339, or null when unset.
func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time)
}

// UnmarshalJSON accepts either null or an RFC3339 timestamp.
func (n *NullTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullTime{}
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	*n = NullTime{Time: t, Valid: true}
	return nil
}
