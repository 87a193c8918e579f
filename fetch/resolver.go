package fetch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/git-pkgs/assemblies/client"
)

var (
	ErrUnsupportedFeed = errors.New("unsupported feed")
	ErrNoDownloadURL   = errors.New("no download URL available")
)

// DefaultNuGetBase is the public NuGet v3 flat-container endpoint.
const DefaultNuGetBase = "https://api.nuget.org/v3-flatcontainer"

// Feed provides the URL information needed to locate a package archive.
type Feed interface {
	Name() string
	URLs() client.URLBuilder
}

// Resolver determines download URLs for package archives.
type Resolver struct {
	feeds map[string]Feed
}

// NewResolver creates a new URL resolver.
func NewResolver() *Resolver {
	return &Resolver{
		feeds: make(map[string]Feed),
	}
}

// RegisterFeed adds a feed for URL resolution.
func (r *Resolver) RegisterFeed(feed Feed) {
	r.feeds[feed.Name()] = feed
}

// ArtifactInfo contains information about a downloadable archive.
type ArtifactInfo struct {
	URL      string
	Filename string
}

// Resolve returns the download URL and filename for a package archive.
// Without a registered feed, "nuget" resolves against the public endpoint.
func (r *Resolver) Resolve(feedName, id, version string) (*ArtifactInfo, error) {
	if feed, ok := r.feeds[feedName]; ok {
		url := feed.URLs().Download(id, version)
		if url == "" {
			return nil, fmt.Errorf("%w: %s %s", ErrNoDownloadURL, id, version)
		}
		return &ArtifactInfo{URL: url, Filename: filenameFromURL(url)}, nil
	}

	if feedName != "nuget" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFeed, feedName)
	}
	url := client.FlatContainerURLs(DefaultNuGetBase).Download(id, version)
	return &ArtifactInfo{URL: url, Filename: filenameFromURL(url)}, nil
}

func filenameFromURL(url string) string {
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}
