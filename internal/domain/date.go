package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const (
	// DisplayLayout is the dd.mm.yyyy form shown to users.
	DisplayLayout = "02.01.2006"
	// ISOLayout is the storage and wire form.
	ISOLayout = "2006-01-02"
)

// Date is a calendar day with no time-of-day and no zone.
// Which day is "today" depends on the configured location; see Today.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalises the given fields, so NewDate(2024, 12, 32) is 2025-01-01.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day in loc.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate accepts dd.mm.yyyy or yyyy-mm-dd. Impossible days such as
// 31.02.2024 are rejected.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DisplayLayout, ISOLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q is not a date, expected dd.mm.yyyy", ErrInvalidInput, s)
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Before(o Date) bool {
	return d.Time().Before(o.Time())
}

func (d Date) After(o Date) bool {
	return d.Time().After(o.Time())
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// String returns yyyy-mm-dd.
func (d Date) String() string {
	return d.Time().Format(ISOLayout)
}

// Display returns dd.mm.yyyy.
func (d Date) Display() string {
	return d.Time().Format(DisplayLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer; the text form binds to a DATE parameter.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanText(s string) error {
	if len(s) >= len(ISOLayout) {
		s = s[:len(ISOLayout)]
	}
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}
