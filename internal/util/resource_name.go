package util

import "regexp"

var (
	UsernameMatcher  = regexp.MustCompile(`^[a-zA-Z0-9]{4,30}$`)
	OtherNameMatcher = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)
)
