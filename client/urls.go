package client

import (
	"fmt"
	"strings"
)

// URLBuilder constructs URLs for a package feed.
type URLBuilder interface {
	// Versions returns the URL listing every published version of name.
	Versions(name string) string
	// Download returns the URL of the package archive.
	Download(name, version string) string
	// Registry returns the human-facing package page.
	Registry(name, version string) string
	// PURL returns the package URL for name and version.
	PURL(name, version string) string
}

// BaseURLs provides a default URLBuilder implementation.
type BaseURLs struct {
	VersionsFn func(name string) string
	DownloadFn func(name, version string) string
	RegistryFn func(name, version string) string
	PURLFn     func(name, version string) string
}

func (b *BaseURLs) Versions(name string) string {
	if b.VersionsFn != nil {
		return b.VersionsFn(name)
	}
	return ""
}

func (b *BaseURLs) Download(name, version string) string {
	if b.DownloadFn != nil {
		return b.DownloadFn(name, version)
	}
	return ""
}

func (b *BaseURLs) Registry(name, version string) string {
	if b.RegistryFn != nil {
		return b.RegistryFn(name, version)
	}
	return ""
}

func (b *BaseURLs) PURL(name, version string) string {
	if b.PURLFn != nil {
		return b.PURLFn(name, version)
	}
	if version == "" {
		return fmt.Sprintf("pkg:nuget/%s", name)
	}
	return fmt.Sprintf("pkg:nuget/%s@%s", name, version)
}

// BuildURLs returns a map of all non-empty URLs for a package.
// Keys are "versions", "download", "registry", and "purl".
func BuildURLs(urls URLBuilder, name, version string) map[string]string {
	result := make(map[string]string)
	if v := urls.Versions(name); v != "" {
		result["versions"] = v
	}
	if v := urls.Download(name, version); v != "" {
		result["download"] = v
	}
	if v := urls.Registry(name, version); v != "" {
		result["registry"] = v
	}
	if v := urls.PURL(name, version); v != "" {
		result["purl"] = v
	}
	return result
}

// FlatContainerURLs builds NuGet v3 flat-container URLs rooted at base.
// Package ids and versions are lowercased, as the protocol requires.
func FlatContainerURLs(base string) *BaseURLs {
	base = strings.TrimSuffix(base, "/")
	return &BaseURLs{
		VersionsFn: func(name string) string {
			return fmt.Sprintf("%s/%s/index.json", base, strings.ToLower(name))
		},
		DownloadFn: func(name, version string) string {
			id, ver := strings.ToLower(name), strings.ToLower(version)
			return fmt.Sprintf("%s/%s/%s/%s.%s.nupkg", base, id, ver, id, ver)
		},
	}
}
