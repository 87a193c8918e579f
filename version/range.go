package version

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Range is a set of acceptable versions.
//
// Supported forms:
//
//	1.0          minimum version, inclusive (>= 1.0)
//	[1.0,2.0)    interval notation with inclusive/exclusive bounds
//	(,1.0]       open lower bound
//	[1.0]        exact version
//	*  2.*  2.4.*  floating: any version within the fixed prefix
//	>=1.2 <2.0   constraint syntax, also ^1.0 and ~1.4
type Range struct {
	min, max         Version
	minIncl, maxIncl bool
	constraint       *mm.Constraints
	allowPrerelease  bool
	original         string
}

// All accepts every stable version.
var All = Range{original: "*"}

// Exact returns a range that only accepts v.
func Exact(v Version) Range {
	return Range{
		min:             v,
		max:             v,
		minIncl:         true,
		maxIncl:         true,
		allowPrerelease: v.IsPrerelease(),
		original:        "[" + v.String() + "]",
	}
}

// ParseRange parses a version range.
func ParseRange(raw string) (Range, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "*" {
		return All, nil
	}

	switch s[0] {
	case '>', '<', '=', '^', '~', '!':
		c, err := mm.NewConstraint(s)
		if err != nil {
			return Range{}, fmt.Errorf("version: parse range %q: %w", raw, err)
		}
		return Range{constraint: c, original: s}, nil
	case '[', '(':
		return parseInterval(s)
	}

	if strings.HasSuffix(s, "*") {
		return parseFloating(s)
	}

	v, err := Parse(s)
	if err != nil {
		return Range{}, fmt.Errorf("version: parse range %q: %w", raw, err)
	}
	return Range{min: v, minIncl: true, allowPrerelease: v.IsPrerelease(), original: s}, nil
}

// MustParseRange parses a range and panics on error.
func MustParseRange(raw string) Range {
	r, err := ParseRange(raw)
	if err != nil {
		panic(err)
	}
	return r
}

func parseInterval(s string) (Range, error) {
	last := s[len(s)-1]
	if last != ']' && last != ')' {
		return Range{}, fmt.Errorf("version: parse range %q: missing closing bracket", s)
	}
	r := Range{
		minIncl:  s[0] == '[',
		maxIncl:  last == ']',
		original: s,
	}
	body := strings.TrimSpace(s[1 : len(s)-1])

	if !strings.Contains(body, ",") {
		if !r.minIncl || !r.maxIncl {
			return Range{}, fmt.Errorf("version: parse range %q: exact version needs [ ]", s)
		}
		v, err := Parse(body)
		if err != nil {
			return Range{}, fmt.Errorf("version: parse range %q: %w", s, err)
		}
		return Exact(v), nil
	}

	lo, hi, _ := strings.Cut(body, ",")
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	if lo == "" && hi == "" {
		return Range{}, fmt.Errorf("version: parse range %q: no bounds", s)
	}
	if lo != "" {
		v, err := Parse(lo)
		if err != nil {
			return Range{}, fmt.Errorf("version: parse range %q: %w", s, err)
		}
		r.min = v
		r.allowPrerelease = v.IsPrerelease()
	}
	if hi != "" {
		v, err := Parse(hi)
		if err != nil {
			return Range{}, fmt.Errorf("version: parse range %q: %w", s, err)
		}
		r.max = v
	}
	if !r.min.IsZero() && !r.max.IsZero() && r.max.LessThan(r.min) {
		return Range{}, fmt.Errorf("version: parse range %q: upper bound below lower bound", s)
	}
	return r, nil
}

// parseFloating turns "2.*" into [2.0.0, 3.0.0) and "2.4.*" into [2.4.0, 2.5.0).
func parseFloating(s string) (Range, error) {
	prefix := strings.TrimSuffix(strings.TrimSuffix(s, "*"), ".")
	if prefix == "" {
		return All, nil
	}
	parts := strings.Split(prefix, ".")
	if len(parts) > 3 {
		return Range{}, fmt.Errorf("version: parse range %q: too many parts", s)
	}
	lo, err := Parse(prefix)
	if err != nil {
		return Range{}, fmt.Errorf("version: parse range %q: %w", s, err)
	}

	var hi string
	switch len(parts) {
	case 1:
		hi = fmt.Sprintf("%d.0.0", lo.Major()+1)
	case 2:
		hi = fmt.Sprintf("%d.%d.0", lo.Major(), lo.Minor()+1)
	default:
		hi = fmt.Sprintf("%d.%d.%d", lo.Major(), lo.Minor(), lo.Patch()+1)
	}
	return Range{min: lo, minIncl: true, max: MustParse(hi), original: s}, nil
}

// Satisfies reports whether v is inside the range.
func (r Range) Satisfies(v Version) bool {
	if v.IsZero() {
		return false
	}
	if r.constraint != nil {
		return r.constraint.Check(v.semver())
	}
	if v.IsPrerelease() && !r.allowPrerelease {
		return false
	}
	if !r.min.IsZero() {
		c := v.Compare(r.min)
		if c < 0 || (c == 0 && !r.minIncl) {
			return false
		}
	}
	if !r.max.IsZero() {
		c := v.Compare(r.max)
		if c > 0 || (c == 0 && !r.maxIncl) {
			return false
		}
	}
	return true
}

// FindBest returns the highest version in candidates that satisfies r.
// If multiple versions are equal, the first encountered wins.
func (r Range) FindBest(candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, c := range candidates {
		if !r.Satisfies(c) {
			continue
		}
		if !found || c.Compare(best) > 0 {
			best = c
			found = true
		}
	}
	return best, found
}

// Min returns the lower bound, or a zero Version when the range has none.
func (r Range) Min() Version { return r.min }

// String returns the range as it was written.
func (r Range) String() string {
	if r.original == "" {
		return "*"
	}
	return r.original
}
