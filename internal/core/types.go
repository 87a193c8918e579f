// Package core provides shared types and the feed system.
package core

import (
	"path/filepath"
	"strings"

	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/version"
)

// Coordinate identifies one retrievable package: an id and an exact version.
// Ids compare case-insensitively.
type Coordinate struct {
	ID      string
	Version version.Version
}

// NewCoordinate parses v and returns the coordinate id@v.
func NewCoordinate(id, v string) (Coordinate, error) {
	ver, err := version.Parse(v)
	if err != nil {
		return Coordinate{}, err
	}
	return Coordinate{ID: id, Version: ver}, nil
}

// MustCoordinate is like NewCoordinate but panics on error.
func MustCoordinate(id, v string) Coordinate {
	c, err := NewCoordinate(id, v)
	if err != nil {
		panic(err)
	}
	return c
}

// Key returns the case-folded id used for identity comparisons.
func (c Coordinate) Key() string { return strings.ToLower(c.ID) }

// Dir returns the cache-relative directory of the package: {id}/{version}.
func (c Coordinate) Dir() string {
	return filepath.Join(c.Key(), strings.ToLower(c.Version.Normalized()))
}

func (c Coordinate) String() string {
	if c.Version.IsZero() {
		return c.ID
	}
	return c.ID + "@" + c.Version.Normalized()
}

// LibraryRange is a package id with a version range that has not been
// resolved to an exact version yet.
type LibraryRange struct {
	ID    string
	Range version.Range
}

func (l LibraryRange) String() string {
	return l.ID + " " + l.Range.String()
}

// Dependency is one entry of a package's dependency manifest.
type Dependency = LibraryRange

// DependencyGroup lists the dependencies a package declares for one target.
// Target is framework.Any for the group that applies to every target.
type DependencyGroup struct {
	Target       framework.Identifier
	Dependencies []Dependency
}

// Folder categories inside a package archive.
const (
	CategoryRef   = "ref"
	CategoryLib   = "lib"
	CategoryBuild = "build"
)

// DefaultCategories is the fixed priority order used for file selection.
var DefaultCategories = []string{CategoryRef, CategoryLib, CategoryBuild}

// FolderGroup is one {category}/{target} folder of an extracted package.
// Files are absolute paths in package order.
type FolderGroup struct {
	Category string
	Target   framework.Identifier
	Folder   string
	Files    []string
}

// DownloadedPackage is an extracted package. Once created it is immutable.
type DownloadedPackage struct {
	Coordinate       Coordinate
	Root             string
	Folders          []FolderGroup
	DependencyGroups []DependencyGroup
}

// FoldersFor returns the folder groups of one category in package order.
func (p *DownloadedPackage) FoldersFor(category string) []FolderGroup {
	var out []FolderGroup
	for _, f := range p.Folders {
		if strings.EqualFold(f.Category, category) {
			out = append(out, f)
		}
	}
	return out
}

// Status reports whether a feed could supply a package.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

// DownloadResult is returned by Feed.Download. Package is nil unless
// Status is StatusAvailable.
type DownloadResult struct {
	Status  Status
	Package *DownloadedPackage
}
