package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DateLayout        = "2006-01-02"
	dateDisplayLayout = "2006. 01. 02."
)

var dateInputLayouts = []string{DateLayout, "2006/01/02"}

// Date is a calendar date without a time of day. It is stored and sent as
// YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD and YYYY/MM/DD.
func ParseDate(v string) (Date, error) {
	v = strings.TrimSpace(v)
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return Date{t}, nil
		}
	}
	return Date{}, errors.Errorf("invalid date %q", v)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Display is the form used in human readable statuses.
func (d Date) Display() string {
	return d.Format(dateDisplayLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.Wrap(err, "date must be a string")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
