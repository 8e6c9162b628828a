package version

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the service version, overridden at build time with
// -ldflags "-X github.com/Xunop/bookshelf/internal/version.Version=...".
var Version = "0.1.0"

func GetCurrentVersion() string {
	return Version
}

// GetMinorVersion extracts the minor version (e.g. `0.2`) from a version string (e.g. `0.2.1`).
func GetMinorVersion(version string) string {
	versionList := strings.Split(version, ".")
	if len(versionList) < 3 {
		return ""
	}
	return versionList[0] + "." + versionList[1]
}

// GetSchemaVersion drops the patch part, patches never change the schema.
func GetSchemaVersion(version string) string {
	minorVersion := GetMinorVersion(version)
	if minorVersion == "" {
		return ""
	}
	return minorVersion + ".0"
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or equal to target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) > -1
}

// IsVersionGreaterThan returns true if version is greater than target.
func IsVersionGreaterThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) > 0
}

type SortVersion []string

func (s SortVersion) Len() int {
	return len(s)
}

func (s SortVersion) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s SortVersion) Less(i, j int) bool {
	v1 := canonical(s[i])
	v2 := canonical(s[j])
	return semver.Compare(v1, v2) == -1
}

// Sort orders versions from oldest to newest in place.
func Sort(versions []string) {
	sort.Sort(SortVersion(versions))
}

func canonical(v string) string {
	return fmt.Sprintf("v%s", strings.TrimPrefix(v, "v"))
}
