package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// DateLayout is the ISO-8601 calendar date layout used on the wire.
const DateLayout = "2006-01-02"

// Date is a civil calendar date with no time-of-day or zone. The zero value
// is an unset date.
type Date struct {
	t time.Time
}

// NewDate returns the date y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO-8601 calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, eris.Wrapf(err, "model: parse date %q", s)
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Year() int { return d.t.Year() }

func (d Date) Month() time.Month { return d.t.Month() }

func (d Date) Day() int { return d.t.Day() }

func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysSince returns the number of whole days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.t.Sub(other.t).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

func (d Date) After(other Date) bool { return d.t.After(other.t) }

func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// Between reports whether d lies in the closed range [start, end].
func (d Date) Between(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

// Format formats d with a time layout.
func (d Date) Format(layout string) string { return d.t.Format(layout) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "model: unmarshal date")
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
