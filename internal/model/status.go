package model

import (
	"strings"

	"github.com/pkg/errors"
)

// Status is the state of a single copy in a user's collection.
type Status int

const (
	StatusDefault Status = iota
	StatusLent
	StatusBorrowed
	StatusLibraryBorrowed
	StatusWishlist
)

var statusNames = [...]string{
	StatusDefault:         "Default",
	StatusLent:            "Lent",
	StatusBorrowed:        "Borrowed",
	StatusLibraryBorrowed: "LibraryBorrowed",
	StatusWishlist:        "Wishlist",
}

// Statuses lists every status in declaration order.
func Statuses() []Status {
	return []Status{StatusDefault, StatusLent, StatusBorrowed, StatusLibraryBorrowed, StatusWishlist}
}

func (s Status) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return statusNames[s]
}

func (s Status) Valid() bool {
	return s >= StatusDefault && s <= StatusWishlist
}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(v string) (Status, error) {
	v = strings.TrimSpace(v)
	for _, s := range Statuses() {
		if strings.EqualFold(v, statusNames[s]) {
			return s, nil
		}
	}
	return StatusDefault, errors.Errorf("unknown status %q", v)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errors.Errorf("invalid status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// HasDetails reports whether entries in this status keep a counterparty name
// and a date.
func (s Status) HasDetails() bool {
	switch s {
	case StatusLent, StatusBorrowed, StatusLibraryBorrowed:
		return true
	case StatusDefault, StatusWishlist:
		return false
	}
	return false
}

// OwnerName is who currently owns the copy, as shown in listings.
func (s Status) OwnerName(otherName string) string {
	switch s {
	case StatusDefault, StatusLent:
		return "Me"
	case StatusBorrowed:
		return orDefault(otherName, "Other")
	case StatusLibraryBorrowed:
		return orDefault(otherName, "Library")
	case StatusWishlist:
		return ""
	}
	return ""
}

// FullStatus renders the status with its optional name and date, e.g.
// "Lent to Alice on 2024. 01. 05.".
func (s Status) FullStatus(otherName string, date *Date) string {
	var b strings.Builder
	switch s {
	case StatusDefault:
		return "Owned"
	case StatusWishlist:
		return "Wishlist"
	case StatusLent:
		b.WriteString("Lent")
		if otherName != "" {
			b.WriteString(" to " + otherName)
		}
	case StatusBorrowed:
		b.WriteString("Borrowed")
		if otherName != "" {
			b.WriteString(" from " + otherName)
		}
	case StatusLibraryBorrowed:
		b.WriteString("Borrowed from " + orDefault(otherName, "the library"))
	default:
		return ""
	}
	if date != nil && !date.IsZero() {
		b.WriteString(" on " + date.Display())
	}
	return b.String()
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
