// Package nuget provides a feed client for NuGet v3 flat-container endpoints.
package nuget

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/git-pkgs/assemblies/fetch"
	"github.com/git-pkgs/assemblies/internal/core"
	"github.com/git-pkgs/assemblies/internal/nupkg"
	"github.com/git-pkgs/assemblies/version"
)

const (
	DefaultURL = fetch.DefaultNuGetBase
	feedName   = "nuget"
)

func init() {
	core.Register(feedName, DefaultURL, func(baseURL string, client *core.Client) core.Feed {
		return New(baseURL, client)
	})
}

// Feed talks to a flat-container endpoint.
type Feed struct {
	baseURL    string
	client     *core.Client
	urls       *core.BaseURLs
	downloader fetch.Downloader
	resolver   *fetch.Resolver
}

// Option configures a Feed.
type Option func(*Feed)

// WithDownloader replaces the archive downloader. The default is a
// circuit-breaking fetch.Fetcher.
func WithDownloader(d fetch.Downloader) Option {
	return func(f *Feed) {
		f.downloader = d
	}
}

func New(baseURL string, client *core.Client, opts ...Option) *Feed {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if client == nil {
		client = core.DefaultClient()
	}
	f := &Feed{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
	f.urls = core.FlatContainerURLs(f.baseURL)
	f.urls.RegistryFn = func(name, version string) string {
		if version == "" {
			return "https://www.nuget.org/packages/" + name
		}
		return "https://www.nuget.org/packages/" + name + "/" + version
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.downloader == nil {
		f.downloader = fetch.NewCircuitBreakerFetcher(fetch.NewFetcher())
	}
	f.resolver = fetch.NewResolver()
	f.resolver.RegisterFeed(f)
	return f
}

func (f *Feed) Name() string {
	return feedName
}

func (f *Feed) URLs() core.URLBuilder {
	return f.urls
}

type versionsResponse struct {
	Versions []string `json:"versions"`
}

// ListVersions returns the published versions in feed order. Entries that
// do not parse as versions are skipped.
func (f *Feed) ListVersions(ctx context.Context, id string) ([]version.Version, error) {
	var resp versionsResponse
	if err := f.client.GetJSON(ctx, f.urls.Versions(id), &resp); err != nil {
		if core.IsNotFound(err) {
			return nil, &core.NotFoundError{Feed: feedName, Name: id}
		}
		return nil, err
	}

	out := make([]version.Version, 0, len(resp.Versions))
	for _, raw := range resp.Versions {
		v, err := version.Parse(raw)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Download fetches the archive of coord and installs it under cacheRoot.
// A 404 from the endpoint yields StatusUnavailable.
func (f *Feed) Download(ctx context.Context, coord core.Coordinate, cacheRoot string) (*core.DownloadResult, error) {
	info, err := f.resolver.Resolve(feedName, coord.ID, coord.Version.Normalized())
	if err != nil {
		return nil, err
	}

	archive, err := fetch.FetchToFile(ctx, f.downloader, info.URL, cacheRoot)
	if errors.Is(err, fetch.ErrNotFound) {
		return &core.DownloadResult{Status: core.StatusUnavailable}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", info.URL, err)
	}
	defer func() { _ = os.Remove(archive) }()

	pkg, err := nupkg.Install(archive, cacheRoot, coord)
	if err != nil {
		return nil, err
	}
	return &core.DownloadResult{Status: core.StatusAvailable, Package: pkg}, nil
}
