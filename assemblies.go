// Package assemblies acquires packages from a feed into a local cache, selects
// the files that match a list of target platforms, and composes the selected
// modules into a merged compilation graph.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/assemblies"
//		_ "github.com/git-pkgs/assemblies/all"
//	)
//
//	feed, err := assemblies.New("nuget", "", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	targets, _ := assemblies.ParseTargets("net48")
//	engine := assemblies.NewEngine(feed, "/var/cache/assemblies")
//	bundle, err := engine.AcquireRanges(ctx, []assemblies.LibraryRange{
//		assemblies.MustRange("Newtonsoft.Json", "[13.0,14.0)"),
//	}, targets, false)
//
// The bundle's Include group holds the requested packages' files and its
// Support group everything needed to resolve their references.
package assemblies

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/assemblies/acquire"
	"github.com/git-pkgs/assemblies/client"
	"github.com/git-pkgs/assemblies/compilation"
	"github.com/git-pkgs/assemblies/filegroup"
	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/internal/core"
	"github.com/git-pkgs/assemblies/metadata"
	"github.com/git-pkgs/assemblies/platform"
	"github.com/git-pkgs/assemblies/refs"
	"github.com/git-pkgs/assemblies/version"
)

// Re-export types from internal/core
type (
	// Feed is the interface implemented by every package feed.
	Feed = core.Feed

	// Coordinate identifies one exact package version.
	Coordinate = core.Coordinate

	// LibraryRange is a package id with a version range, not yet resolved.
	LibraryRange = core.LibraryRange

	// DependencyGroup lists the dependencies a package declares for one target.
	DependencyGroup = core.DependencyGroup

	// DownloadedPackage is an extracted package in the cache.
	DownloadedPackage = core.DownloadedPackage

	// DownloadResult is what a feed returns from Download.
	DownloadResult = core.DownloadResult
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for feed APIs.
	Client = client.Client

	// URLBuilder constructs URLs for a feed.
	URLBuilder = client.URLBuilder

	// RateLimiter controls request pacing.
	RateLimiter = client.RateLimiter
)

type (
	// Bundle is the Include and Support file groups produced by acquisition.
	Bundle = filegroup.Bundle

	// Engine acquires packages into a cache directory.
	Engine = acquire.Engine

	// Graph is a merged compilation of modules.
	Graph = compilation.Graph

	// Target is a target platform identifier.
	Target = framework.Identifier
)

// Re-export constants
const (
	StatusAvailable   = core.StatusAvailable
	StatusUnavailable = core.StatusUnavailable

	CategoryRef   = core.CategoryRef
	CategoryLib   = core.CategoryLib
	CategoryBuild = core.CategoryBuild
)

// Re-export errors
var (
	ErrNotFound            = core.ErrNotFound
	ErrUnresolved          = core.ErrUnresolved
	ErrUnavailable         = core.ErrUnavailable
	ErrPlatformUnsupported = core.ErrPlatformUnsupported
	ErrReferenceUnresolved = refs.ErrUnresolved
	ErrNotInitialized      = compilation.ErrNotInitialized
)

// Error types
type (
	HTTPError                = core.HTTPError
	NotFoundError            = core.NotFoundError
	RateLimitError           = core.RateLimitError
	ResolutionError          = core.ResolutionError
	AcquireError             = core.AcquireError
	PlatformUnsupportedError = core.PlatformUnsupportedError
)

// New creates a feed of the given type.
// If baseURL is empty, the default feed URL is used.
// If client is nil, DefaultClient() is used.
//
// Built-in feeds: "nuget" and "folder" (baseURL is the root directory).
func New(feed string, baseURL string, c *Client) (Feed, error) {
	return core.New(feed, baseURL, c)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// Option configures a Client.
type Option = client.Option

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// SupportedFeeds returns all registered feed types.
// Note: feeds must be imported to be registered.
func SupportedFeeds() []string {
	return core.SupportedFeeds()
}

// BuildURLs returns a map of all non-empty URLs for a package.
// Keys are "versions", "download", "registry", and "purl".
func BuildURLs(urls URLBuilder, id, ver string) map[string]string {
	return client.BuildURLs(urls, id, ver)
}

// DefaultURL returns the default URL for a feed type.
func DefaultURL(feed string) string {
	return core.DefaultURL(feed)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:nuget/Widgets) and version PURLs (pkg:nuget/Widgets@2.4.0).
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}

// ParseCoordinate parses a versioned nuget PURL into a Coordinate.
func ParseCoordinate(purl string) (Coordinate, error) {
	return core.ParseCoordinate(purl)
}

// NewFromPURL creates a feed from a PURL and returns the parsed components.
// Returns the feed, package id, and version (empty if not in PURL).
func NewFromPURL(purl string, c *Client) (Feed, string, string, error) {
	return core.NewFromPURL(purl, c)
}

// NewCoordinate parses v and returns the coordinate of id at v.
func NewCoordinate(id, v string) (Coordinate, error) {
	return core.NewCoordinate(id, v)
}

// NewRange parses rng and returns the library range of id.
func NewRange(id, rng string) (LibraryRange, error) {
	r, err := version.ParseRange(rng)
	if err != nil {
		return LibraryRange{}, err
	}
	return LibraryRange{ID: id, Range: r}, nil
}

// MustRange is like NewRange but panics on error.
func MustRange(id, rng string) LibraryRange {
	lr, err := NewRange(id, rng)
	if err != nil {
		panic(err)
	}
	return lr
}

// ParseTargets parses a priority list of target platforms such as "net48" or
// ".NETStandard,Version=v2.0".
func ParseTargets(targets ...string) ([]Target, error) {
	return framework.ParseList(targets...)
}

// ResolveCoordinate returns the highest version of id in feed that satisfies rng.
// A *ResolutionError is returned when nothing does.
func ResolveCoordinate(ctx context.Context, feed Feed, id string, rng string) (Coordinate, error) {
	lr, err := NewRange(id, rng)
	if err != nil {
		return Coordinate{}, err
	}
	return core.ResolveCoordinate(ctx, feed, lr.ID, lr.Range)
}

// ResolveAll resolves ranges in parallel and returns coordinates in input order.
func ResolveAll(ctx context.Context, feed Feed, ranges []LibraryRange) ([]Coordinate, error) {
	return core.ResolveAll(ctx, feed, ranges)
}

// NewBundle creates an empty bundle.
func NewBundle() *Bundle {
	return filegroup.NewBundle()
}

// NewEngine creates an acquisition engine over feed and cacheDir.
func NewEngine(feed Feed, cacheDir string, opts ...acquire.Option) *Engine {
	return acquire.New(feed, cacheDir, opts...)
}

// Acquire materializes coords and their dependencies and returns the bundle
// of files selected for targets.
func Acquire(ctx context.Context, feed Feed, cacheDir string, coords []Coordinate, targets []Target, supportOnly bool, opts ...acquire.Option) (*Bundle, error) {
	return acquire.New(feed, cacheDir, opts...).Acquire(ctx, coords, targets, supportOnly)
}

// PlatformBundle returns the files the first target's platform provides,
// acquired through engine. metadataRoot overrides the location of platform
// metadata files and may be empty.
func PlatformBundle(ctx context.Context, engine *Engine, targets []Target, metadataRoot string, logger *log.Logger) (*Bundle, error) {
	e, err := platform.Lookup(targets, platform.Deps{Acquirer: engine, MetadataRoot: metadataRoot, Logger: logger})
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, targets)
}

// NewGraph creates a compilation graph over mains. References are resolved
// against the bundle's Support group for the first target.
func NewGraph(parser metadata.Parser, bundle *Bundle, mains []string, target Target, resolverOpts []refs.Option, opts ...compilation.Option) *Graph {
	var support *filegroup.Group
	if bundle != nil {
		support = bundle.Support
	}
	return compilation.New(parser, refs.New(resolverOpts...), mains, support, target, opts...)
}
