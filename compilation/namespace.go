package compilation

import (
	"strings"

	"github.com/git-pkgs/assemblies/metadata"
)

// Namespace is a logical union of the same namespace across every module
// of a graph. Nothing is copied: types and children are collected from the
// modules on each call.
type Namespace struct {
	name  string
	parts []*metadata.Namespace
}

func newNamespace(name string, modules []metadata.Module) *Namespace {
	n := &Namespace{name: name}
	for _, m := range modules {
		if root := m.Root(); root != nil {
			n.parts = append(n.parts, root)
		}
	}
	return n
}

// Name returns the full dotted name. The root namespace has an empty name.
func (n *Namespace) Name() string { return n.name }

// Types returns the types declared in this namespace by any module. When
// several modules declare a type with the same simple name, the first
// module wins.
func (n *Namespace) Types() []metadata.TypeDef {
	seen := make(map[string]bool)
	var out []metadata.TypeDef
	for _, p := range n.parts {
		for _, t := range p.Types {
			if seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			out = append(out, t)
		}
	}
	return out
}

// Children returns the child namespaces, merged by simple name, in the
// order they are first seen.
func (n *Namespace) Children() []*Namespace {
	var out []*Namespace
	index := make(map[string]*Namespace)
	for _, p := range n.parts {
		for _, c := range p.Children {
			simple := metadata.SimpleName(c.Name)
			if merged, ok := index[simple]; ok {
				merged.parts = append(merged.parts, c)
				continue
			}
			merged := &Namespace{name: n.childName(simple), parts: []*metadata.Namespace{c}}
			index[simple] = merged
			out = append(out, merged)
		}
	}
	return out
}

// Child returns the merged child with the given simple name, or nil.
func (n *Namespace) Child(simple string) *Namespace {
	var parts []*metadata.Namespace
	for _, p := range n.parts {
		if c := p.Child(simple); c != nil {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return &Namespace{name: n.childName(simple), parts: parts}
}

// Lookup walks a dotted namespace name from n.
func (n *Namespace) Lookup(dotted string) *Namespace {
	if dotted == "" {
		return n
	}
	cur := n
	for _, part := range strings.Split(dotted, ".") {
		cur = cur.Child(part)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Type returns the type with the given simple name.
func (n *Namespace) Type(simple string) (metadata.TypeDef, bool) {
	for _, p := range n.parts {
		for _, t := range p.Types {
			if t.Name == simple {
				return t, true
			}
		}
	}
	return metadata.TypeDef{}, false
}

func (n *Namespace) find(fullName string) (metadata.TypeDef, bool) {
	ns, simple := "", fullName
	if i := strings.LastIndexByte(fullName, '.'); i >= 0 {
		ns, simple = fullName[:i], fullName[i+1:]
	}
	target := n.Lookup(ns)
	if target == nil {
		return metadata.TypeDef{}, false
	}
	return target.Type(simple)
}

func (n *Namespace) childName(simple string) string {
	if n.name == "" {
		return simple
	}
	return n.name + "." + simple
}
