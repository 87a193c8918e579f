package metadata

import "strings"

// TypeDef is a type declared by a module.
type TypeDef struct {
	Name      string
	Namespace string
	Public    bool
}

// FullName returns the namespace-qualified name.
func (t TypeDef) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Namespace is one node of a module's namespace tree. Name is the full
// dotted name; the root namespace has an empty name.
type Namespace struct {
	Name     string
	Types    []TypeDef
	Children []*Namespace
}

// Child returns the direct child with the given simple name.
func (n *Namespace) Child(name string) *Namespace {
	for _, c := range n.Children {
		if SimpleName(c.Name) == name {
			return c
		}
	}
	return nil
}

// SimpleName returns the last segment of a dotted name.
func SimpleName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// BuildTree groups types into a namespace tree rooted at the empty namespace.
func BuildTree(types ...TypeDef) *Namespace {
	root := &Namespace{}
	for _, t := range types {
		node := root
		if t.Namespace != "" {
			for _, part := range strings.Split(t.Namespace, ".") {
				next := node.Child(part)
				if next == nil {
					full := part
					if node.Name != "" {
						full = node.Name + "." + part
					}
					next = &Namespace{Name: full}
					node.Children = append(node.Children, next)
				}
				node = next
			}
		}
		node.Types = append(node.Types, t)
	}
	return root
}
