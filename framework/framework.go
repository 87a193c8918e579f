// Package framework parses target platform identifiers and matches package
// folders against a priority list of targets.
//
// An Identifier is a family tag plus a version. Identifier a covers b when both
// belong to the same family and a's version is at least b's: a package folder
// published for b can then be consumed by a.
//
// Example:
//
//	target := framework.MustParse("net8.0")
//	folder := framework.MustParse("net6.0")
//	target.Covers(folder) // true
package framework

import (
	"fmt"
	"strconv"
	"strings"
)

// Known families.
const (
	NETFramework = ".NETFramework"
	NETCoreApp   = ".NETCoreApp"
	NETStandard  = ".NETStandard"
	UAP          = "UAP"
	Windows      = "Windows"
	WindowsPhone = "WindowsPhone"
	MonoAndroid  = "MonoAndroid"
	XamarinIOS   = "Xamarin.iOS"
	AnyFamily    = "Any"
)

var shortNames = map[string]string{
	"net":         NETFramework,
	"netcoreapp":  NETCoreApp,
	"netstandard": NETStandard,
	"uap":         UAP,
	"win":         Windows,
	"netcore":     Windows,
	"wp":          WindowsPhone,
	"monoandroid": MonoAndroid,
	"xamarinios":  XamarinIOS,
	"xamarin.ios": XamarinIOS,
	"any":         AnyFamily,
}

var longNames = map[string]string{
	".netframework": NETFramework,
	".netcoreapp":   NETCoreApp,
	".netstandard":  NETStandard,
	"uap":           UAP,
	".netcore":      Windows,
	"windows":       Windows,
	"windowsphone":  WindowsPhone,
	"monoandroid":   MonoAndroid,
	"xamarin.ios":   XamarinIOS,
	"any":           AnyFamily,
}

// Version is a framework version number.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// Compare returns -1 if v < other, 0 if equal, 1 if v > other.
func (v Version) Compare(other Version) int {
	a := [4]int{v.Major, v.Minor, v.Build, v.Revision}
	b := [4]int{other.Major, other.Minor, other.Build, other.Revision}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// IsEmpty reports whether every component is zero.
func (v Version) IsEmpty() bool { return v == Version{} }

// String trims trailing zero components, keeping at least "major.minor".
func (v Version) String() string {
	switch {
	case v.Revision > 0:
		return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
	case v.Build > 0:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Identifier is a target platform identifier.
type Identifier struct {
	Family  string
	Version Version
}

// Any matches folders and dependency groups published without a platform.
var Any = Identifier{Family: AnyFamily}

// IsAny reports whether id is the platform-neutral identifier.
func (id Identifier) IsAny() bool { return id.Family == AnyFamily }

// Covers reports whether a package folder published for other can be used
// by id. Any is covered by every identifier.
func (id Identifier) Covers(other Identifier) bool {
	if other.IsAny() {
		return true
	}
	return strings.EqualFold(id.Family, other.Family) && id.Version.Compare(other.Version) >= 0
}

// Equal reports whether both identifiers name the same family and version.
func (id Identifier) Equal(other Identifier) bool {
	return strings.EqualFold(id.Family, other.Family) && id.Version.Compare(other.Version) == 0
}

// String returns the short folder name, e.g. "net48", "net8.0", "netstandard2.0".
func (id Identifier) String() string {
	switch id.Family {
	case AnyFamily:
		return "any"
	case NETFramework:
		return "net" + compact(id.Version)
	case NETCoreApp:
		if id.Version.Major >= 5 {
			return "net" + id.Version.String()
		}
		return "netcoreapp" + id.Version.String()
	case NETStandard:
		return "netstandard" + id.Version.String()
	case UAP:
		return "uap" + id.Version.String()
	case Windows:
		return "win" + compact(id.Version)
	case WindowsPhone:
		return "wp" + compact(id.Version)
	case MonoAndroid:
		return "monoandroid" + id.Version.String()
	case XamarinIOS:
		return "xamarinios" + versionOrEmpty(id.Version)
	}
	return strings.ToLower(id.Family) + id.Version.String()
}

// LongName returns the ".Family,Version=vX.Y" form.
func (id Identifier) LongName() string {
	if id.IsAny() {
		return AnyFamily
	}
	return fmt.Sprintf("%s,Version=v%s", id.Family, id.Version)
}

func compact(v Version) string {
	if v.IsEmpty() {
		return ""
	}
	s := strconv.Itoa(v.Major) + strconv.Itoa(v.Minor)
	if v.Build > 0 {
		s += strconv.Itoa(v.Build)
	}
	return s
}

func versionOrEmpty(v Version) string {
	if v.IsEmpty() {
		return ""
	}
	return v.String()
}

// Parse parses a short folder name ("net48", "net8.0", "netstandard2.0",
// "uap10.0", "win81") or a long name (".NETFramework,Version=v4.5",
// ".NETStandard2.0").
//
// net5.0 and later map to .NETCoreApp; dotless net versions ("net48",
// "net472") map to .NETFramework. Platform suffixes after a dash
// ("net6.0-windows") are dropped.
func Parse(s string) (Identifier, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Identifier{}, fmt.Errorf("framework: empty identifier")
	}
	if strings.HasPrefix(raw, ".") || strings.Contains(raw, ",") {
		return parseLong(raw)
	}

	name := strings.ToLower(raw)
	if i := strings.IndexByte(name, '-'); i >= 0 {
		name = name[:i]
	}

	split := strings.IndexFunc(name, func(r rune) bool { return r >= '0' && r <= '9' })
	prefix, ver := name, ""
	if split >= 0 {
		prefix, ver = name[:split], name[split:]
	}

	family, ok := shortNames[prefix]
	if !ok {
		return Identifier{}, fmt.Errorf("framework: unknown identifier %q", s)
	}
	if family == AnyFamily {
		return Any, nil
	}

	v, err := parseVersion(ver)
	if err != nil {
		return Identifier{}, fmt.Errorf("framework: parse %q: %w", s, err)
	}
	if family == NETFramework && strings.Contains(ver, ".") && v.Major >= 5 {
		family = NETCoreApp
	}
	return Identifier{Family: family, Version: v}, nil
}

// MustParse parses an identifier and panics on error.
func MustParse(s string) Identifier {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseList parses a priority list of identifiers.
func ParseList(items ...string) ([]Identifier, error) {
	out := make([]Identifier, 0, len(items))
	for _, s := range items {
		id, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parseLong(s string) (Identifier, error) {
	name, ver := s, ""
	if i := strings.IndexByte(s, ','); i >= 0 {
		name = s[:i]
		rest := strings.TrimSpace(s[i+1:])
		key, val, ok := strings.Cut(rest, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "Version") {
			return Identifier{}, fmt.Errorf("framework: parse %q: missing Version", s)
		}
		ver = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(val), "v"), "V")
	} else {
		split := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
		if split > 0 {
			name, ver = s[:split], s[split:]
		}
	}

	family, ok := longNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Identifier{}, fmt.Errorf("framework: unknown identifier %q", s)
	}
	if family == AnyFamily {
		return Any, nil
	}
	if !strings.Contains(ver, ".") && ver != "" {
		ver += ".0"
	}
	v, err := parseVersion(ver)
	if err != nil {
		return Identifier{}, fmt.Errorf("framework: parse %q: %w", s, err)
	}
	return Identifier{Family: family, Version: v}, nil
}

// parseVersion accepts dotted ("4.7.2") and compact ("472") forms.
func parseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, nil
	}

	var parts []string
	if strings.Contains(s, ".") {
		parts = strings.Split(s, ".")
	} else {
		parts = strings.Split(s, "")
		if len(parts) == 1 {
			parts = append(parts, "0")
		}
	}
	if len(parts) > 4 {
		return Version{}, fmt.Errorf("too many version parts in %q", s)
	}

	var n [4]int
	for i, p := range parts {
		x, err := strconv.Atoi(p)
		if err != nil || x < 0 {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		n[i] = x
	}
	return Version{Major: n[0], Minor: n[1], Build: n[2], Revision: n[3]}, nil
}
