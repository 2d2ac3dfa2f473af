package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the only accepted literal format for premiere dates, both
// from the catalog and in patch bodies.
const DateLayout = "2006-01-02"

// ClockLayout is the accepted format for Schedule.Time.
const ClockLayout = "15:04"

// Date is a calendar day without time-of-day.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD literal.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("date %q is not in YYYY-MM-DD format", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
