// Package compilation composes main modules and everything they reference
// into one symbol space with a merged root namespace.
//
// A Graph is built once, on the first call to Build or RootNamespace, and
// should be built before it is read from several goroutines.
package compilation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/git-pkgs/assemblies/filegroup"
	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/metadata"
	"github.com/git-pkgs/assemblies/refs"
)

// ErrNotInitialized is returned when the graph is read before Build completes.
var ErrNotInitialized = errors.New("compilation graph not initialized")

// ErrClosed is returned by Build after Close.
var ErrClosed = errors.New("compilation graph closed")

// ErrTruncated is wrapped by the error Build returns in strict mode.
var ErrTruncated = errors.New("compilation graph truncated")

// Resolver locates referenced modules. It is satisfied by *refs.Resolver.
type Resolver interface {
	Resolve(ref metadata.AssemblyReference, from string, support *filegroup.Group, target framework.Identifier) (string, error)
}

// Diagnostic records a reference edge that was not followed.
type Diagnostic struct {
	Reference string
	From      string
	Err       error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s (from %s): %v", d.Reference, d.From, d.Err)
}

// TruncatedError lists every reference a strict build could not follow.
type TruncatedError struct {
	Diagnostics []Diagnostic
}

func (e *TruncatedError) Error() string {
	if len(e.Diagnostics) == 1 {
		return fmt.Sprintf("compilation graph truncated: %s", e.Diagnostics[0])
	}
	return fmt.Sprintf("compilation graph truncated: %d unresolved references, first: %s", len(e.Diagnostics), e.Diagnostics[0])
}

func (e *TruncatedError) Unwrap() error {
	return ErrTruncated
}

const defaultCacheSize = 4096

// Graph is a merged compilation of main modules and their references.
type Graph struct {
	parser   metadata.Parser
	resolver Resolver
	mains    []string
	support  *filegroup.Group
	target   framework.Identifier

	logger    *log.Logger
	strict    bool
	cacheSize int

	mu          sync.Mutex
	built       bool
	buildErr    error
	opened      map[string]metadata.Module
	modules     []metadata.Module
	mainModules []metadata.Module
	diagnostics []Diagnostic
	root        *Namespace
	types       *lru.Cache[string, typeLookup]

	closeOnce sync.Once
	closeErr  error
}

type typeLookup struct {
	def   metadata.TypeDef
	found bool
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithStrict makes Build fail when any reference cannot be followed.
func WithStrict(strict bool) Option {
	return func(g *Graph) {
		g.strict = strict
	}
}

// WithCacheSize sets the number of type lookups remembered by LookupType.
func WithCacheSize(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.cacheSize = n
		}
	}
}

// New creates a graph over the main module paths. References are resolved
// with resolver against support for target. Nothing is opened until Build.
func New(parser metadata.Parser, resolver Resolver, mains []string, support *filegroup.Group, target framework.Identifier, opts ...Option) *Graph {
	g := &Graph{
		parser:    parser,
		resolver:  resolver,
		mains:     mains,
		support:   support,
		target:    target,
		logger:    log.New(io.Discard),
		cacheSize: defaultCacheSize,
		opened:    make(map[string]metadata.Module),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.support == nil {
		g.support = filegroup.New()
	}
	return g
}

// Build opens the main modules and walks their references breadth first.
// A reference that cannot be resolved or opened is recorded as a
// diagnostic and not followed. Build runs once; later calls return the
// first result.
func (g *Graph) Build(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.built || g.buildErr != nil {
		return g.buildErr
	}
	g.buildErr = g.build(ctx)
	if g.buildErr == nil {
		g.built = true
	}
	return g.buildErr
}

func (g *Graph) build(ctx context.Context) error {
	var queue []metadata.Module
	for _, path := range g.mains {
		if m, ok := g.opened[path]; ok {
			g.mainModules = append(g.mainModules, m)
			continue
		}
		m, err := g.parser.Open(path)
		if err != nil {
			return fmt.Errorf("opening main module %s: %w", path, err)
		}
		g.track(path, m)
		g.mainModules = append(g.mainModules, m)
		queue = append(queue, m)
	}

	visited := make(map[string]bool)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := queue[0]
		queue = queue[1:]

		for _, ref := range m.References() {
			key := ref.FullName()
			if visited[key] {
				continue
			}
			visited[key] = true

			path, err := g.resolver.Resolve(ref, m.Path(), g.support, g.target)
			if err != nil {
				if !errors.Is(err, refs.ErrUnresolved) {
					return fmt.Errorf("resolving %s from %s: %w", key, m.Path(), err)
				}
				g.truncate(key, m.Path(), err)
				continue
			}
			if _, ok := g.opened[path]; ok {
				continue
			}

			next, err := g.parser.Open(path)
			if err != nil {
				g.truncate(key, m.Path(), err)
				continue
			}
			g.track(path, next)
			queue = append(queue, next)
		}
	}

	if g.strict && len(g.diagnostics) > 0 {
		return &TruncatedError{Diagnostics: g.diagnostics}
	}

	types, err := lru.New[string, typeLookup](g.cacheSize)
	if err != nil {
		return err
	}
	g.types = types
	g.root = newNamespace("", g.modules)
	g.logger.Debug("compilation graph built", "modules", len(g.modules), "truncated", len(g.diagnostics))
	return nil
}

func (g *Graph) track(path string, m metadata.Module) {
	g.opened[path] = m
	g.modules = append(g.modules, m)
}

func (g *Graph) truncate(ref, from string, err error) {
	g.logger.Debug("reference truncated", "reference", ref, "from", from, "err", err)
	g.diagnostics = append(g.diagnostics, Diagnostic{Reference: ref, From: from, Err: err})
}

// RootNamespace builds the graph if needed and returns the merged root namespace.
func (g *Graph) RootNamespace(ctx context.Context) (*Namespace, error) {
	if err := g.Build(ctx); err != nil {
		return nil, err
	}
	return g.Namespace()
}

// Namespace returns the merged root namespace of a built graph.
func (g *Graph) Namespace() (*Namespace, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.built {
		return nil, ErrNotInitialized
	}
	return g.root, nil
}

// Modules returns every module in the graph: main modules first, then
// referenced modules in discovery order.
func (g *Graph) Modules() ([]metadata.Module, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.built {
		return nil, ErrNotInitialized
	}
	return append([]metadata.Module(nil), g.modules...), nil
}

// MainModules returns the modules opened from the main paths.
func (g *Graph) MainModules() ([]metadata.Module, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.built {
		return nil, ErrNotInitialized
	}
	return append([]metadata.Module(nil), g.mainModules...), nil
}

// Diagnostics returns the references that were not followed.
func (g *Graph) Diagnostics() []Diagnostic {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Diagnostic(nil), g.diagnostics...)
}

// LookupType finds a type by its namespace-qualified name in the merged
// namespace. Results, including misses, are cached per graph.
func (g *Graph) LookupType(fullName string) (metadata.TypeDef, bool, error) {
	root, err := g.Namespace()
	if err != nil {
		return metadata.TypeDef{}, false, err
	}
	if hit, ok := g.types.Get(fullName); ok {
		return hit.def, hit.found, nil
	}

	def, found := root.find(fullName)
	g.types.Add(fullName, typeLookup{def: def, found: found})
	return def, found, nil
}

// Close closes every opened module, including those that were discovered
// through references. It is safe to call more than once.
func (g *Graph) Close() error {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		defer g.mu.Unlock()

		var errs []error
		for _, m := range g.modules {
			if err := m.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", m.Path(), err))
			}
		}
		g.closeErr = errors.Join(errs...)
		if g.types != nil {
			g.types.Purge()
		}
		g.built = false
		g.buildErr = ErrClosed
	})
	return g.closeErr
}
