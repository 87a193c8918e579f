// Package refs locates the files behind assembly references found while
// reading a module's metadata.
package refs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/assemblies/filegroup"
	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/metadata"
	"github.com/git-pkgs/assemblies/platform"
	"github.com/git-pkgs/assemblies/version"
)

// ErrUnresolved is returned when no strategy finds a reference.
var ErrUnresolved = errors.New("assembly reference unresolved")

// UnresolvedError names the reference that could not be found and the paths tried.
type UnresolvedError struct {
	Reference string
	From      string
	Tried     []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("resolving %q from %s: not found in %d locations", e.Reference, e.From, len(e.Tried))
}

func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolved
}

var (
	moduleExtensions   = []string{".dll", ".exe"}
	metadataExtensions = []string{".winmd"}
)

var coreLibraries = map[string]bool{
	"mscorlib":               true,
	"system.private.corelib": true,
}

// Resolver maps assembly references to files.
type Resolver struct {
	logger          *log.Logger
	coreLibraryPath string
	hostVersion     version.Version
	referenceRoot   string
	metadataRoot    string
	fileExists      func(string) bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCoreLibrary sets the host's copy of the core library and its version.
// References to the core library at or below that version, and retargetable
// references that accept any version, resolve to path.
func WithCoreLibrary(path string, v version.Version) Option {
	return func(r *Resolver) {
		r.coreLibraryPath = path
		r.hostVersion = v
	}
}

// WithReferenceAssembliesRoot sets the root of the installed reference
// assemblies, laid out as {root}/{.NETFramework}/v{version}.
func WithReferenceAssembliesRoot(root string) Option {
	return func(r *Resolver) {
		r.referenceRoot = root
	}
}

// WithMetadataRoot sets the folder searched for .winmd references.
func WithMetadataRoot(root string) Option {
	return func(r *Resolver) {
		r.metadataRoot = root
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		logger:     log.New(io.Discard),
		fileExists: fileExists,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.referenceRoot == "" {
		r.referenceRoot = defaultReferenceRoot()
	}
	return r
}

// Resolve returns the path of the module ref names. from is the path of the
// module holding the reference; support is searched by file name.
//
// Strategies are tried in order: the host core library, the directory of
// from, the support group, then the reference assemblies of target.
// Windows Runtime references are looked up under the metadata root instead
// of the last three.
func (r *Resolver) Resolve(ref metadata.AssemblyReference, from string, support *filegroup.Group, target framework.Identifier) (string, error) {
	if path, ok := r.coreLibrary(ref); ok {
		return path, nil
	}

	if ref.WindowsRuntime {
		path, candidates, err := r.windowsRuntime(ref)
		if err != nil {
			return "", err
		}
		if path != "" {
			return path, nil
		}
		r.logger.Debug("metadata reference unresolved", "reference", ref.FullName(), "from", from)
		return "", &UnresolvedError{Reference: ref.FullName(), From: from, Tried: candidates}
	}

	var tried []string
	if from != "" {
		dir := filepath.Dir(from)
		for _, ext := range moduleExtensions {
			candidate := filepath.Join(dir, ref.Name+ext)
			tried = append(tried, candidate)
			if r.fileExists(candidate) {
				return candidate, nil
			}
		}
	}

	if support != nil {
		for _, ext := range moduleExtensions {
			tried = append(tried, "support:"+ref.Name+ext)
			if path, ok := support.FindByName(ref.Name + ext); ok {
				return path, nil
			}
		}
	}

	for _, dir := range r.conventionFolders(target) {
		for _, ext := range moduleExtensions {
			candidate := filepath.Join(dir, ref.Name+ext)
			tried = append(tried, candidate)
			if r.fileExists(candidate) {
				return candidate, nil
			}
		}
	}

	r.logger.Debug("reference unresolved", "reference", ref.FullName(), "from", from, "target", target.String())
	return "", &UnresolvedError{Reference: ref.FullName(), From: from, Tried: tried}
}

func (r *Resolver) coreLibrary(ref metadata.AssemblyReference) (string, bool) {
	if r.coreLibraryPath == "" || !coreLibraries[strings.ToLower(ref.Name)] {
		return "", false
	}
	if ref.IsAnyVersion() || ref.Version.Compare(r.hostVersion) <= 0 {
		return r.coreLibraryPath, true
	}
	return "", false
}

// windowsRuntime looks for {root}/{name}.winmd, then the versioned SDK layout
// {root}/{name}/{version}/{name}.winmd.
func (r *Resolver) windowsRuntime(ref metadata.AssemblyReference) (string, []string, error) {
	root, err := platform.MetadataRoot(r.metadataRoot)
	if err != nil {
		return "", nil, err
	}

	var candidates []string
	for _, ext := range metadataExtensions {
		candidates = append(candidates,
			filepath.Join(root, ref.Name+ext),
			filepath.Join(root, ref.Name, metadata.FormatVersion(ref.Version), ref.Name+ext),
		)
	}
	for _, c := range candidates {
		if r.fileExists(c) {
			return c, candidates, nil
		}
	}
	return "", candidates, nil
}

// conventionFolders returns the installed reference assembly folders for
// target. Only .NET Framework targets have one.
func (r *Resolver) conventionFolders(target framework.Identifier) []string {
	if r.referenceRoot == "" || target.Family != framework.NETFramework {
		return nil
	}
	dir := filepath.Join(r.referenceRoot, target.Family, "v"+target.Version.String())
	return []string{dir, filepath.Join(dir, "Facades")}
}

func defaultReferenceRoot() string {
	if runtime.GOOS != "windows" {
		return ""
	}
	base := os.Getenv("ProgramFiles(x86)")
	if base == "" {
		base = `C:\Program Files (x86)`
	}
	return filepath.Join(base, "Reference Assemblies", "Microsoft", "Framework")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
