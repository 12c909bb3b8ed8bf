package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONTime wraps time.Time so we control both JSON un/marshaling and SQL
// driver encoding. Parsed values are normalized to UTC.
type JSONTime time.Time

var jsonTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseJSONTime accepts RFC3339 (with or without fractional seconds), the
// zone-less forms dashboards send ("2025-05-16T15:32:25.000") and plain
// dates ("2025-05-16").
func ParseJSONTime(s string) (JSONTime, error) {
	for _, layout := range jsonTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return JSONTime(t.UTC()), nil
		}
	}
	return JSONTime{}, fmt.Errorf("JSONTime: cannot parse %q", s)
}

func (jt *JSONTime) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*jt = JSONTime{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := ParseJSONTime(s)
	if err != nil {
		return err
	}
	*jt = t
	return nil
}

// MarshalJSON always emits RFC3339 ("…Z").
func (jt JSONTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(jt).UTC().Format(time.RFC3339))
}

// Value implements driver.Valuer so GORM can write JSONTime as a timestamp.
func (jt JSONTime) Value() (driver.Value, error) {
	return time.Time(jt).UTC(), nil
}

// Scan implements sql.Scanner so GORM can read timestamps back.
func (jt *JSONTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*jt = JSONTime{}
		return nil
	case time.Time:
		*jt = JSONTime(v.UTC())
		return nil
	case []byte:
		return jt.scanString(string(v))
	case string:
		return jt.scanString(v)
	default:
		return fmt.Errorf("JSONTime.Scan: unsupported type %T", src)
	}
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func (jt *JSONTime) scanString(s string) error {
	// sqlite drivers may hand back their own text layout
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*jt = JSONTime(t.UTC())
			return nil
		}
	}
	t, err := ParseJSONTime(s)
	if err != nil {
		return fmt.Errorf("JSONTime.Scan: %w", err)
	}
	*jt = t
	return nil
}

func (jt JSONTime) Time() time.Time { return time.Time(jt) }

func (jt JSONTime) IsZero() bool { return time.Time(jt).IsZero() }
