package core

import (
	"fmt"

	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with feed-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the package id. NuGet ids carry no namespace, but one is
// joined with "/" when present.
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	return p.Namespace + "/" + p.Name
}

// Feed returns the feed type the PURL addresses. A repository_url qualifier
// is returned as the base URL for private feeds.
func (p PURL) Feed() (name, baseURL string) {
	return p.Type, p.Qualifiers.Map()["repository_url"]
}

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:nuget/Widgets) and version PURLs (pkg:nuget/Widgets@2.4.0).
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

// ParseCoordinate parses a versioned PURL into a Coordinate.
func ParseCoordinate(purl string) (Coordinate, error) {
	p, err := ParsePURL(purl)
	if err != nil {
		return Coordinate{}, err
	}
	if p.Version == "" {
		return Coordinate{}, fmt.Errorf("PURL has no version: %s", purl)
	}
	return NewCoordinate(p.FullName(), p.Version)
}

// NewFromPURL creates a feed from a PURL and returns the parsed components.
// Returns the feed, package id, and version (empty if not in PURL).
func NewFromPURL(purl string, client *Client) (Feed, string, string, error) {
	p, err := ParsePURL(purl)
	if err != nil {
		return nil, "", "", err
	}

	name, baseURL := p.Feed()
	feed, err := New(name, baseURL, client)
	if err != nil {
		return nil, "", "", err
	}

	return feed, p.FullName(), p.Version, nil
}

// PURLString formats a coordinate as pkg:nuget/{id}@{version}.
func PURLString(c Coordinate) string {
	p := packageurl.NewPackageURL("nuget", "", c.ID, c.Version.Normalized(), nil, "")
	return p.ToString()
}
