// Package metadatatest provides an in-memory metadata.Parser for tests.
package metadatatest

import (
	"fmt"
	"os"
	"sync"

	"github.com/git-pkgs/assemblies/metadata"
	"github.com/git-pkgs/assemblies/version"
)

// Module is an in-memory metadata.Module that counts Close calls.
type Module struct {
	ModuleName    string
	ModuleVersion string
	FilePath      string
	Refs          []metadata.AssemblyReference
	Types         []metadata.TypeDef

	mu     sync.Mutex
	closed int
}

func (m *Module) Name() string { return m.ModuleName }

func (m *Module) Version() version.Version {
	v, err := version.Parse(m.ModuleVersion)
	if err != nil {
		return version.Version{}
	}
	return v
}

func (m *Module) Path() string                             { return m.FilePath }
func (m *Module) References() []metadata.AssemblyReference { return m.Refs }
func (m *Module) Root() *metadata.Namespace                { return metadata.BuildTree(m.Types...) }

func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// Closed returns how many times Close was called.
func (m *Module) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Parser serves modules by path and records every Open.
type Parser struct {
	mu      sync.Mutex
	modules map[string]*Module
	opened  map[string]int
}

// NewParser creates a parser serving modules by their FilePath.
func NewParser(modules ...*Module) *Parser {
	p := &Parser{modules: make(map[string]*Module), opened: make(map[string]int)}
	for _, m := range modules {
		p.modules[m.FilePath] = m
	}
	return p
}

func (p *Parser) Open(path string) (metadata.Module, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.modules[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	p.opened[path]++
	return m, nil
}

// Opened returns how many times path was opened.
func (p *Parser) Opened(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened[path]
}

// Ref builds a reference to name at ver.
func Ref(name, ver string) metadata.AssemblyReference {
	return metadata.AssemblyReference{Name: name, Version: version.MustParse(ver)}
}
