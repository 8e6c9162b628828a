package version

import (
	"strings"
	"testing"
)

func TestIsVersionGreaterThan(t *testing.T) {
	tests := []struct {
		version string
		target  string
		want    bool
	}{
		{"0.2.0", "0.1.9", true},
		{"0.10.0", "0.9.0", true},
		{"0.1.0", "0.1.0", false},
		{"0.1.0", "0.2.0", false},
	}
	for _, tt := range tests {
		if got := IsVersionGreaterThan(tt.version, tt.target); got != tt.want {
			t.Errorf("IsVersionGreaterThan(%s, %s) = %v, want %v", tt.version, tt.target, got, tt.want)
		}
	}
	if !IsVersionGreaterOrEqualThan("0.1.0", "0.1.0") {
		t.Error("equal versions should compare greater or equal")
	}
}

func TestSortVersion(t *testing.T) {
	versions := []string{"0.10.0", "0.2.0", "0.9.1", "0.1.0"}
	Sort(versions)
	if got := strings.Join(versions, ","); got != "0.1.0,0.2.0,0.9.1,0.10.0" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestSchemaVersion(t *testing.T) {
	if got := GetSchemaVersion("0.3.7"); got != "0.3.0" {
		t.Fatalf("GetSchemaVersion = %s", got)
	}
	if got := GetMinorVersion("bad"); got != "" {
		t.Fatalf("GetMinorVersion = %s", got)
	}
}
