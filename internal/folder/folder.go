// Package folder provides a feed over a local directory laid out as
// {root}/{id}/{version}/{id}.{version}.nupkg.
package folder

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-pkgs/assemblies/internal/core"
	"github.com/git-pkgs/assemblies/internal/nupkg"
	"github.com/git-pkgs/assemblies/version"
)

const feedName = "folder"

func init() {
	core.Register(feedName, "", func(baseURL string, _ *core.Client) core.Feed {
		return New(baseURL)
	})
}

// Feed reads packages from a local directory. Id and version directory
// names match case-insensitively.
type Feed struct {
	root string
	urls *core.BaseURLs
}

func New(root string) *Feed {
	f := &Feed{root: root}
	f.urls = &core.BaseURLs{
		DownloadFn: func(name, version string) string {
			if path, ok := f.archive(name, version); ok {
				return "file://" + filepath.ToSlash(path)
			}
			return ""
		},
	}
	return f
}

func (f *Feed) Name() string {
	return feedName
}

func (f *Feed) URLs() core.URLBuilder {
	return f.urls
}

// ListVersions returns the version directories of id that parse as versions.
func (f *Feed) ListVersions(_ context.Context, id string) ([]version.Version, error) {
	dir, ok := lookup(f.root, id)
	if !ok {
		return nil, &core.NotFoundError{Feed: feedName, Name: id}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []version.Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := version.Parse(e.Name())
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Download installs the archive of coord into cacheRoot. A missing id,
// version or archive yields StatusUnavailable.
func (f *Feed) Download(ctx context.Context, coord core.Coordinate, cacheRoot string) (*core.DownloadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := f.archive(coord.ID, coord.Version.String())
	if !ok {
		return &core.DownloadResult{Status: core.StatusUnavailable}, nil
	}

	pkg, err := nupkg.Install(path, cacheRoot, coord)
	if err != nil {
		return nil, err
	}
	return &core.DownloadResult{Status: core.StatusAvailable, Package: pkg}, nil
}

// archive finds the first .nupkg inside the directory of id and ver.
// Version directories match by version equality, so "2.4" finds "2.4.0".
func (f *Feed) archive(id, ver string) (string, bool) {
	want, err := version.Parse(ver)
	if err != nil {
		return "", false
	}
	idDir, ok := lookup(f.root, id)
	if !ok {
		return "", false
	}

	entries, err := os.ReadDir(idDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if v, err := version.Parse(e.Name()); err != nil || !v.Equal(want) {
			continue
		}
		matches, _ := filepath.Glob(filepath.Join(idDir, e.Name(), "*.nupkg"))
		if len(matches) > 0 {
			return matches[0], true
		}
	}
	return "", false
}

// lookup finds the child of dir named name, ignoring case.
func lookup(dir, name string) (string, bool) {
	exact := filepath.Join(dir, name)
	if info, err := os.Stat(exact); err == nil && info.IsDir() {
		return exact, true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() && strings.EqualFold(e.Name(), name) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}
