// Package version parses package versions and version ranges.
//
// Versions follow the NuGet shape: one to four numeric parts with an optional
// prerelease label and build metadata ("2.4", "13.0.3", "4.0.0.1", "1.0.0-beta.2").
// The first three parts and the prerelease label are compared with
// github.com/Masterminds/semver/v3; the optional fourth part breaks ties.
package version

import (
	"fmt"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a package version.
type Version struct {
	v        *mm.Version
	revision uint64
	original string
}

// Parse parses a version string.
func Parse(raw string) (Version, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Version{}, fmt.Errorf("version: empty version")
	}

	core, suffix := s, ""
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		core, suffix = s[:i], s[i:]
	}

	parts := strings.Split(core, ".")
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("version: parse %q: too many parts", raw)
	}
	var revision uint64
	if len(parts) == 4 {
		r, err := strconv.ParseUint(parts[3], 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("version: parse %q: %w", raw, err)
		}
		revision = r
		parts = parts[:3]
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}

	v, err := mm.StrictNewVersion(strings.Join(parts, ".") + suffix)
	if err != nil {
		return Version{}, fmt.Errorf("version: parse %q: %w", raw, err)
	}
	return Version{v: v, revision: revision, original: s}, nil
}

// MustParse parses a version and panics on error.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v was never set.
func (v Version) IsZero() bool { return v.v == nil }

// Major returns the first numeric part.
func (v Version) Major() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Major()
}

// Minor returns the second numeric part.
func (v Version) Minor() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Minor()
}

// Patch returns the third numeric part.
func (v Version) Patch() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Patch()
}

// Revision returns the fourth numeric part.
func (v Version) Revision() uint64 { return v.revision }

// Prerelease returns the prerelease label without the leading dash.
func (v Version) Prerelease() string {
	if v.v == nil {
		return ""
	}
	return v.v.Prerelease()
}

// IsPrerelease reports whether v carries a prerelease label.
func (v Version) IsPrerelease() bool { return v.Prerelease() != "" }

// Compare returns -1, 0 or 1. Build metadata is ignored. A zero Version
// sorts before every other version.
func (v Version) Compare(other Version) int {
	switch {
	case v.v == nil && other.v == nil:
		return 0
	case v.v == nil:
		return -1
	case other.v == nil:
		return 1
	}
	if c := v.v.Compare(other.v); c != 0 {
		return c
	}
	switch {
	case v.revision < other.revision:
		return -1
	case v.revision > other.revision:
		return 1
	}
	return 0
}

// Equal reports whether v and other denote the same version.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// LessThan reports whether v sorts before other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

// Normalized returns the canonical string form used for cache directories:
// three parts, a fourth only when non-zero, and the prerelease label.
// Build metadata is dropped.
func (v Version) Normalized() string {
	if v.v == nil {
		return ""
	}
	s := fmt.Sprintf("%d.%d.%d", v.v.Major(), v.v.Minor(), v.v.Patch())
	if v.revision > 0 {
		s += "." + strconv.FormatUint(v.revision, 10)
	}
	if pre := v.v.Prerelease(); pre != "" {
		s += "-" + pre
	}
	return s
}

// String returns the version as it was written.
func (v Version) String() string {
	if v.original != "" {
		return v.original
	}
	return v.Normalized()
}

// semver returns the three-part view used for constraint checks.
func (v Version) semver() *mm.Version { return v.v }
