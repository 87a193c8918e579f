// Package filegroup indexes discovered files as a directory tree.
//
// A Group answers two questions: which files were discovered (in insertion
// order), and where is the shallowest file with a given name. The second is a
// nearest-wins heuristic, not a uniqueness guarantee: when two different files
// share a name at the same depth, the one inserted first is returned.
package filegroup

import (
	"iter"
	"path/filepath"
	"strings"
)

type dirNode struct {
	name     string
	children []*dirNode
	byName   map[string]*dirNode
	files    []string          // file names in insertion order
	paths    map[string]string // file name -> full path
}

func newDir(name string) *dirNode {
	return &dirNode{
		name:   name,
		byName: make(map[string]*dirNode),
		paths:  make(map[string]string),
	}
}

func (d *dirNode) child(name string) *dirNode {
	if c, ok := d.byName[name]; ok {
		return c
	}
	c := newDir(name)
	d.byName[name] = c
	d.children = append(d.children, c)
	return c
}

// Group is an ordered, queryable set of files. The zero value is not usable;
// call New.
type Group struct {
	root  *dirNode
	order []string
	index map[string]int
}

// New creates an empty Group.
func New() *Group {
	return &Group{
		root:  newDir(""),
		index: make(map[string]int),
	}
}

// AddFiles adds paths to the group. A file whose name already exists in the
// same directory is ignored.
func (g *Group) AddFiles(paths ...string) {
	for _, p := range paths {
		g.add(p)
	}
}

func (g *Group) add(p string) bool {
	clean := filepath.Clean(p)
	dir, name := filepath.Split(clean)
	if name == "" {
		return false
	}

	node := g.root
	for _, part := range splitDir(dir) {
		node = node.child(part)
	}
	if _, exists := node.paths[name]; exists {
		return false
	}
	node.files = append(node.files, name)
	node.paths[name] = clean

	g.index[clean] = len(g.order)
	g.order = append(g.order, clean)
	return true
}

func splitDir(dir string) []string {
	dir = filepath.ToSlash(filepath.Clean(dir))
	var parts []string
	for _, part := range strings.Split(dir, "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	return parts
}

// AllFiles yields every file in insertion order.
func (g *Group) AllFiles() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, p := range g.order {
			if p == "" {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Files returns every file in insertion order.
func (g *Group) Files() []string {
	out := make([]string, 0, len(g.index))
	for p := range g.AllFiles() {
		out = append(out, p)
	}
	return out
}

// Len returns the number of files in the group.
func (g *Group) Len() int { return len(g.index) }

// Contains reports whether path is a member of the group.
func (g *Group) Contains(path string) bool {
	_, ok := g.index[filepath.Clean(path)]
	return ok
}

// FindByName returns the full path of the shallowest file called name,
// searching breadth-first from the root. Among matches at the same depth
// the file added first wins. Names are matched exactly.
func (g *Group) FindByName(name string) (string, bool) {
	level := []*dirNode{g.root}
	for len(level) > 0 {
		best, bestIndex := "", -1
		var next []*dirNode
		for _, node := range level {
			if p, ok := node.paths[name]; ok {
				if i := g.index[p]; bestIndex < 0 || i < bestIndex {
					best, bestIndex = p, i
				}
			}
			next = append(next, node.children...)
		}
		if bestIndex >= 0 {
			return best, true
		}
		level = next
	}
	return "", false
}

// Remove drops path from the group. It reports whether the path was present.
func (g *Group) Remove(path string) bool {
	clean := filepath.Clean(path)
	i, ok := g.index[clean]
	if !ok {
		return false
	}
	delete(g.index, clean)
	g.order[i] = ""

	dir, name := filepath.Split(clean)
	node := g.root
	for _, part := range splitDir(dir) {
		next, ok := node.byName[part]
		if !ok {
			return true
		}
		node = next
	}
	delete(node.paths, name)
	for j, f := range node.files {
		if f == name {
			node.files = append(node.files[:j], node.files[j+1:]...)
			break
		}
	}
	return true
}
