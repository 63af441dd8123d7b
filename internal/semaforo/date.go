package semaforo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date with no time zone. The zero value means "no date",
// which the evaluator treats as a missing document.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"2/1/2006",
}

// ParseDate reads an issue date as it comes from the store or an import row.
// Malformed input yields the zero Date instead of an error.
func ParseDate(raw string) Date {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}
	}
	// Timestamps keep the calendar part exactly as written.
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return DateOf(t)
		}
	}
	return Date{}
}

// DateOf takes the calendar fields of t as stored, without converting zones.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// NewDate builds a Date and rejects impossible calendar values.
func NewDate(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, fmt.Errorf("invalid calendar date %04d-%02d-%02d", year, month, day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

func (d Date) Valid() bool {
	return d.Year > 0 && d.Month >= time.January && d.Month <= time.December && d.Day > 0
}

// Compare returns -1, 0 or +1 ordering d against other by year, month, day.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// Time returns midnight UTC of d, or the zero time for an invalid date.
func (d Date) Time() time.Time {
	if !d.Valid() {
		return time.Time{}
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*d = Date{}
		return nil
	}
	*d = ParseDate(raw)
	return nil
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
