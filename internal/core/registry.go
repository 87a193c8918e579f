package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/git-pkgs/assemblies/version"
)

// Feed is the interface implemented by all package feed clients.
type Feed interface {
	// Name returns the feed type (e.g., "nuget", "folder").
	Name() string

	// ListVersions returns every published version of a package.
	ListVersions(ctx context.Context, id string) ([]version.Version, error)

	// Download fetches and extracts a package into cacheRoot/{id}/{version}.
	// A package the feed does not have is reported as StatusUnavailable,
	// not as an error. Errors are transport or extraction failures.
	Download(ctx context.Context, coord Coordinate, cacheRoot string) (*DownloadResult, error)

	// URLs returns the URL builder for this feed.
	URLs() URLBuilder
}

// Factory creates a feed instance for a given base URL or path.
type Factory func(baseURL string, client *Client) Feed

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a feed factory to the global table.
// defaultURL is used when New is called with an empty base URL.
func Register(name string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
	defaults[name] = defaultURL
}

// New creates a new feed of the given type.
// If baseURL is empty, the default URL is used.
func New(name string, baseURL string, client *Client) (Feed, error) {
	mu.RLock()
	factory, ok := factories[name]
	defaultURL := defaults[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown feed: %s", name)
	}

	if baseURL == "" {
		baseURL = defaultURL
	}

	if client == nil {
		client = DefaultClient()
	}

	return factory(baseURL, client), nil
}

// SupportedFeeds returns all registered feed types, sorted.
func SupportedFeeds() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultURL returns the default URL for a feed type.
func DefaultURL(name string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[name]
}
