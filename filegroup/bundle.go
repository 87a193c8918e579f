package filegroup

// Bundle is the result of an acquisition: files the caller asked for
// (Include) and files present only so references can be resolved (Support).
// A path is never a member of both groups.
type Bundle struct {
	Include *Group
	Support *Group
}

// NewBundle creates an empty Bundle.
func NewBundle() *Bundle {
	return &Bundle{Include: New(), Support: New()}
}

// AddInclude adds paths to Include, removing them from Support.
func (b *Bundle) AddInclude(paths ...string) {
	for _, p := range paths {
		b.Support.Remove(p)
		b.Include.AddFiles(p)
	}
}

// AddSupport adds paths to Support unless they are already included.
func (b *Bundle) AddSupport(paths ...string) {
	for _, p := range paths {
		if b.Include.Contains(p) {
			continue
		}
		b.Support.AddFiles(p)
	}
}

// Add routes paths to Include or Support.
func (b *Bundle) Add(include bool, paths ...string) {
	if include {
		b.AddInclude(paths...)
		return
	}
	b.AddSupport(paths...)
}

// Merge copies every file of other into b, preserving group exclusivity.
func (b *Bundle) Merge(other *Bundle) {
	if other == nil {
		return
	}
	for p := range other.Include.AllFiles() {
		b.AddInclude(p)
	}
	for p := range other.Support.AllFiles() {
		b.AddSupport(p)
	}
}

// Empty reports whether neither group holds any file.
func (b *Bundle) Empty() bool {
	return b.Include.Len() == 0 && b.Support.Len() == 0
}
