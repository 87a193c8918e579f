// Package metadata defines what the rest of the module needs from a
// binary-module metadata reader: the module's identity, its outgoing
// assembly references and its namespace tree. Reading the binary format
// itself is left to implementations of Parser.
package metadata

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/assemblies/version"
)

// Parser opens binary modules.
type Parser interface {
	Open(path string) (Module, error)
}

// Module is an opened binary module. Close releases its file handle.
type Module interface {
	Name() string
	Version() version.Version
	Path() string
	References() []AssemblyReference
	Root() *Namespace
	Close() error
}

// AssemblyReference points from one module to another by identity.
type AssemblyReference struct {
	Name           string
	Version        version.Version
	Culture        string
	PublicKeyToken string
	// Retargetable references may be satisfied by any compatible copy.
	Retargetable bool
	// WindowsRuntime references name .winmd metadata-only modules.
	WindowsRuntime bool
}

// AnyVersion is the version retargetable references use to accept any copy.
var AnyVersion = version.MustParse("255.255.255.255")

// FullName returns the display name, e.g.
// "System.Runtime, Version=4.2.2.0, Culture=neutral, PublicKeyToken=b03f5f7f11d50a3a".
func (r AssemblyReference) FullName() string {
	var b strings.Builder
	b.WriteString(r.Name)
	fmt.Fprintf(&b, ", Version=%s", FormatVersion(r.Version))

	culture := r.Culture
	if culture == "" {
		culture = "neutral"
	}
	fmt.Fprintf(&b, ", Culture=%s", culture)

	token := strings.ToLower(r.PublicKeyToken)
	if token == "" {
		token = "null"
	}
	fmt.Fprintf(&b, ", PublicKeyToken=%s", token)

	if r.Retargetable {
		b.WriteString(", Retargetable=Yes")
	}
	if r.WindowsRuntime {
		b.WriteString(", ContentType=WindowsRuntime")
	}
	return b.String()
}

// IsAnyVersion reports whether r accepts any version of the target module.
func (r AssemblyReference) IsAnyVersion() bool {
	return r.Retargetable && r.Version.Equal(AnyVersion)
}

// FormatVersion renders v with all four components, as assembly versions are written.
func FormatVersion(v version.Version) string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major(), v.Minor(), v.Patch(), v.Revision())
}
