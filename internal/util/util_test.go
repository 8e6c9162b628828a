package util

import "testing"

func TestValidateEmail(t *testing.T) {
	tests := map[string]bool{
		"reader@example.com":          true,
		"not-an-email":                false,
		"Reader <reader@example.com>": false,
		"":                            false,
	}
	for in, want := range tests {
		if got := ValidateEmail(in); got != want {
			t.Errorf("ValidateEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsUUID(t *testing.T) {
	if !IsUUID(GenUUID()) {
		t.Fatal("generated id should be a UUID")
	}
	for _, id := range []string{"", "42", "5f0c2c1e7f3a4b8e9d431b6c1a2f9e10", "not-a-uuid-at-all-not-a-uuid-at-all"} {
		if IsUUID(id) {
			t.Errorf("IsUUID(%q) should be false", id)
		}
	}
}

func TestRandomString(t *testing.T) {
	s, err := RandomString(32)
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 32 {
		t.Fatalf("unexpected length %d", len(s))
	}
	other, _ := RandomString(32)
	if s == other {
		t.Fatal("two random strings should differ")
	}
}

func TestMatchers(t *testing.T) {
	if !UsernameMatcher.MatchString("reader42") || UsernameMatcher.MatchString("abc") || UsernameMatcher.MatchString("bad name") {
		t.Error("UsernameMatcher mismatch")
	}
	if !OtherNameMatcher.MatchString("City Library 2") || OtherNameMatcher.MatchString("Alice!") || OtherNameMatcher.MatchString("Árpád") {
		t.Error("OtherNameMatcher mismatch")
	}
}
