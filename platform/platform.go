// Package platform holds the table of platform extractors. An extractor
// turns a priority list of target platforms into the bundle of files that
// platform provides: its reference assemblies and, for some platforms,
// metadata files from the local system.
package platform

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/assemblies/filegroup"
	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/internal/core"
)

// Extractor produces the bundle for one platform family.
type Extractor interface {
	// Platform returns the name the extractor is registered under.
	Platform() string
	// CanHandle reports whether the first target belongs to this platform.
	CanHandle(targets []framework.Identifier) bool
	// Extract acquires the files the platform provides for targets.
	Extract(ctx context.Context, targets []framework.Identifier) (*filegroup.Bundle, error)
}

// SupportProvider is implemented by extractors whose targets imply
// support packages, such as a base-library reference pack.
type SupportProvider interface {
	SupportRanges(target framework.Identifier) []core.LibraryRange
}

// Acquirer resolves and acquires packages. It is satisfied by *acquire.Engine.
type Acquirer interface {
	AcquireRanges(ctx context.Context, ranges []core.LibraryRange, targets []framework.Identifier, supportOnly bool) (*filegroup.Bundle, error)
}

// Deps are the collaborators handed to every extractor factory.
type Deps struct {
	Acquirer Acquirer
	// MetadataRoot overrides the OS location of platform metadata files.
	MetadataRoot string
	Logger       *log.Logger
}

// Factory creates an extractor.
type Factory func(deps Deps) Extractor

var (
	factories = make(map[string]Factory)
	mu        sync.RWMutex
)

// Register adds an extractor factory to the table.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// New creates the extractor registered under name.
func New(name string, deps Deps) (Extractor, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", name)
	}
	return factory(withDefaults(deps)), nil
}

// Lookup returns the first extractor, in name order, that can handle targets.
func Lookup(targets []framework.Identifier, deps Deps) (Extractor, error) {
	for _, name := range Platforms() {
		e, err := New(name, deps)
		if err != nil {
			return nil, err
		}
		if e.CanHandle(targets) {
			return e, nil
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no target platforms given")
	}
	return nil, fmt.Errorf("no platform extractor handles %s", targets[0])
}

// Platforms returns every registered extractor name, sorted.
func Platforms() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportRanges collects the support packages implied by target from every
// registered extractor that handles it.
func SupportRanges(target framework.Identifier) []core.LibraryRange {
	var out []core.LibraryRange
	targets := []framework.Identifier{target}
	for _, name := range Platforms() {
		e, err := New(name, Deps{})
		if err != nil || !e.CanHandle(targets) {
			continue
		}
		if sp, ok := e.(SupportProvider); ok {
			out = append(out, sp.SupportRanges(target)...)
		}
	}
	return out
}

func withDefaults(deps Deps) Deps {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	return deps
}
