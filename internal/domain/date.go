package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Accepted layouts, tried in order.
var (
	DateLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02/01/2006",
		"2006/01/02",
	}
	DateTimeLayouts = []string{
		"2006-01-02 15:04:05",
		"02/01/2006 15:04:05",
		"2006/01/02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
	}
)

// ParseDate returns the calendar date in raw, or false when no layout
// matches. ISO timestamps such as 2025-05-19T00:00:00-03:00 keep their date part.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if i := strings.IndexByte(raw, 'T'); i > 0 {
		raw = raw[:i]
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseDateTime returns the timestamp in raw, or false when no layout matches.
func ParseDateTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range DateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date is a calendar date. The zero value means absent and encodes as null.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateFrom parses raw permissively; unparseable input yields the zero Date.
func DateFrom(raw string) Date {
	t, ok := ParseDate(raw)
	if !ok {
		return Date{}
	}
	return Date{Time: t}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Ptr returns nil for the zero Date.
func (d Date) Ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	raw, isNull, err := jsonText(b)
	if err != nil {
		return err
	}
	if isNull || strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	t, ok := ParseDate(raw)
	if !ok {
		return fmt.Errorf("%w: unrecognized date %q", ErrInvalidInput, raw)
	}
	*d = Date{Time: t}
	return nil
}

// DateTime is a timestamp without zone semantics. The zero value means absent.
type DateTime struct {
	time.Time
}

func DateTimeFrom(raw string) DateTime {
	t, ok := ParseDateTime(raw)
	if !ok {
		return DateTime{}
	}
	return DateTime{Time: t}
}

func (d DateTime) Ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02T15:04:05"))
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	raw, isNull, err := jsonText(b)
	if err != nil {
		return err
	}
	if isNull || strings.TrimSpace(raw) == "" {
		*d = DateTime{}
		return nil
	}
	t, ok := ParseDateTime(raw)
	if !ok {
		return fmt.Errorf("%w: unrecognized timestamp %q", ErrInvalidInput, raw)
	}
	*d = DateTime{Time: t}
	return nil
}

func jsonText(b []byte) (string, bool, error) {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return "", true, nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false, fmt.Errorf("%w: expected string: %v", ErrInvalidInput, err)
	}
	return s, false, nil
}
