// Package indicator computes rolling technical indicators over an OHLC series.
//
// Every function is pure: it borrows the input read-only and returns new
// slices of the same length. Entries that cannot be computed yet (the window
// has not filled) are absent Values, never zero.
package indicator

import (
	"encoding/json"
	"strconv"
)

// Value is an indicator reading that may be absent.
type Value struct {
	V  float64
	OK bool
}

// Some returns a present Value.
func Some(v float64) Value { return Value{V: v, OK: true} }

// Absent is the zero Value: not yet computable.
var Absent = Value{}

// Get returns the reading and whether it is present.
func (v Value) Get() (float64, bool) { return v.V, v.OK }

// MarshalJSON encodes absent values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.OK {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.V, 'f', -1, 64), nil
}

// UnmarshalJSON decodes null as Absent.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Absent
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

func (v Value) String() string {
	if !v.OK {
		return "absent"
	}
	return strconv.FormatFloat(v.V, 'f', 4, 64)
}

// Last returns the final element of vals, or Absent for an empty slice.
func Last(vals []Value) Value {
	if len(vals) == 0 {
		return Absent
	}
	return vals[len(vals)-1]
}
