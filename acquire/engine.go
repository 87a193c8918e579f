// Package acquire downloads packages and their dependencies into a local
// cache and selects the files that best match a list of target platforms.
//
// The cache directory holds two trees:
//
//	packages/{id}/{version}/                         extracted packages
//	selected/{id}/{version}/{category}/{framework}/  files chosen for a target
//
// A package directory that exists is treated as complete and is never
// downloaded again.
package acquire

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/assemblies/filegroup"
	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/internal/core"
	"github.com/git-pkgs/assemblies/internal/nupkg"
	"github.com/git-pkgs/assemblies/platform"
)

// SupportFunc returns the support packages a target platform implies.
type SupportFunc func(target framework.Identifier) []core.LibraryRange

// Engine acquires packages from one feed into one cache directory.
// An Engine is safe for concurrent use; overlapping calls share the cache.
type Engine struct {
	feed         core.Feed
	cacheDir     string
	logger       *log.Logger
	parallelism  int
	dependencies bool
	categories   []string
	support      SupportFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParallelism sets the batch size. The default is runtime.NumCPU().
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithDependencies controls whether package dependencies and the support
// packages implied by the target platforms are acquired. Enabled by default.
func WithDependencies(enabled bool) Option {
	return func(e *Engine) {
		e.dependencies = enabled
	}
}

// WithCategories sets the folder categories tried, in order, when selecting
// files from a package. The default is ref, lib, build.
func WithCategories(categories ...string) Option {
	return func(e *Engine) {
		if len(categories) > 0 {
			e.categories = categories
		}
	}
}

// WithSupport replaces the source of implied support packages. The default
// asks the platform extractor table.
func WithSupport(fn SupportFunc) Option {
	return func(e *Engine) {
		e.support = fn
	}
}

// New creates an engine that downloads from feed into cacheDir.
func New(feed core.Feed, cacheDir string, opts ...Option) *Engine {
	e := &Engine{
		feed:         feed,
		cacheDir:     cacheDir,
		logger:       log.New(io.Discard),
		parallelism:  runtime.NumCPU(),
		dependencies: true,
		categories:   core.DefaultCategories,
		support:      platform.SupportRanges,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PackagesDir is where extracted packages live.
func (e *Engine) PackagesDir() string { return filepath.Join(e.cacheDir, "packages") }

// SelectedDir is where selected files are copied.
func (e *Engine) SelectedDir() string { return filepath.Join(e.cacheDir, "selected") }

type work struct {
	coord   core.Coordinate
	include bool
}

type materialized struct {
	coord   core.Coordinate
	include bool
	pkg     *core.DownloadedPackage
}

// Acquire materializes coords and their dependencies for targets and returns
// the selected files. Requested packages go to the bundle's Include group
// unless supportOnly is set; dependencies and implied support packages go
// to Support.
//
// A package the feed reports as unavailable is logged and left out of the
// bundle. Transport and extraction errors abort the acquisition.
func (e *Engine) Acquire(ctx context.Context, coords []core.Coordinate, targets []framework.Identifier, supportOnly bool) (*filegroup.Bundle, error) {
	var stack []work
	for i := len(coords) - 1; i >= 0; i-- {
		if coords[i].Version.IsZero() {
			return nil, &core.AcquireError{ID: coords[i].ID, Targets: targets, Err: core.ErrUnresolved}
		}
		stack = append(stack, work{coord: coords[i], include: !supportOnly})
	}
	if e.dependencies {
		implied, err := e.impliedSupport(ctx, targets)
		if err != nil {
			return nil, err
		}
		for _, c := range implied {
			stack = append(stack, work{coord: c})
		}
	}

	results := make(map[string]*materialized)
	unavailable := make(map[string]bool)
	var order []string

	for len(stack) > 0 {
		n := min(e.parallelism, len(stack))
		batch := stack[len(stack)-n:]
		stack = stack[:len(stack)-n]

		pending := e.plan(batch, results, unavailable)
		if len(pending) == 0 {
			continue
		}

		done, err := e.materialize(ctx, pending, targets)
		if err != nil {
			return nil, err
		}
		for _, w := range pending {
			unavailable[ref(w.coord)] = true
		}

		for _, m := range done {
			delete(unavailable, ref(m.coord))
			key := m.coord.Key()
			if _, seen := results[key]; !seen {
				order = append(order, key)
			}
			results[key] = m

			if !e.dependencies {
				continue
			}
			deps, err := e.dependencyCoordinates(ctx, m, targets)
			if err != nil {
				return nil, err
			}
			for i := len(deps) - 1; i >= 0; i-- {
				stack = append(stack, work{coord: deps[i]})
			}
		}
	}

	bundle := filegroup.NewBundle()
	for _, key := range order {
		m := results[key]
		files, err := e.selectFiles(m.pkg, targets)
		if err != nil {
			return nil, &core.AcquireError{ID: m.coord.ID, Version: m.coord.Version.Normalized(), Targets: targets, Err: err}
		}
		bundle.Add(m.include, files...)
	}
	return bundle, nil
}

// AcquireRanges resolves each range to its best published version and
// acquires the result.
func (e *Engine) AcquireRanges(ctx context.Context, ranges []core.LibraryRange, targets []framework.Identifier, supportOnly bool) (*filegroup.Bundle, error) {
	coords, err := core.ResolveAllWithConcurrency(ctx, e.feed, ranges, e.parallelism)
	if err != nil {
		return nil, err
	}
	return e.Acquire(ctx, coords, targets, supportOnly)
}

// plan drops batch items already satisfied by results or known to be
// unavailable, and merges duplicates within the batch. A package is only
// replaced by a strictly higher version; the include flag is sticky across
// versions of the same id.
func (e *Engine) plan(batch []work, results map[string]*materialized, unavailable map[string]bool) []work {
	var pending []work
	index := make(map[string]int)

	for i := len(batch) - 1; i >= 0; i-- {
		w := batch[i]
		key := w.coord.Key()
		if unavailable[ref(w.coord)] {
			continue
		}

		if m, ok := results[key]; ok {
			if w.coord.Version.Compare(m.coord.Version) <= 0 {
				m.include = m.include || w.include
				continue
			}
			w.include = w.include || m.include
		}

		if j, ok := index[key]; ok {
			p := &pending[j]
			if w.coord.Version.Compare(p.coord.Version) > 0 {
				p.coord = w.coord
			}
			p.include = p.include || w.include
			continue
		}
		index[key] = len(pending)
		pending = append(pending, w)
	}
	return pending
}

// materialize loads every pending package, downloading the ones missing from
// the cache concurrently. Unavailable packages are dropped.
func (e *Engine) materialize(ctx context.Context, pending []work, targets []framework.Identifier) ([]*materialized, error) {
	out := make([]*materialized, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	for i, w := range pending {
		g.Go(func() error {
			pkg, err := e.fetch(gctx, w.coord)
			if err != nil {
				return &core.AcquireError{ID: w.coord.ID, Version: w.coord.Version.Normalized(), Targets: targets, Err: err}
			}
			if pkg == nil {
				e.logger.Warn("package unavailable",
					"id", w.coord.ID,
					"version", w.coord.Version.Normalized(),
					"targets", targetNames(targets))
				return nil
			}
			out[i] = &materialized{coord: w.coord, include: w.include, pkg: pkg}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	done := out[:0]
	for _, m := range out {
		if m != nil {
			done = append(done, m)
		}
	}
	return done, nil
}

// fetch returns the extracted package, or nil when the feed does not have it.
func (e *Engine) fetch(ctx context.Context, coord core.Coordinate) (*core.DownloadedPackage, error) {
	dir := filepath.Join(e.PackagesDir(), coord.Dir())
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		e.logger.Debug("package cached", "id", coord.ID, "version", coord.Version.Normalized())
		return nupkg.Load(dir, coord)
	}

	if err := os.MkdirAll(e.PackagesDir(), 0o755); err != nil {
		return nil, err
	}
	e.logger.Debug("downloading package", "id", coord.ID, "version", coord.Version.Normalized(), "feed", e.feed.Name())
	res, err := e.feed.Download(ctx, coord, e.PackagesDir())
	if err != nil {
		return nil, err
	}
	if res.Status != core.StatusAvailable || res.Package == nil {
		return nil, nil
	}
	return res.Package, nil
}

// impliedSupport resolves the support packages of every target.
func (e *Engine) impliedSupport(ctx context.Context, targets []framework.Identifier) ([]core.Coordinate, error) {
	if e.support == nil {
		return nil, nil
	}
	var ranges []core.LibraryRange
	for _, t := range targets {
		ranges = append(ranges, e.support(t)...)
	}
	if len(ranges) == 0 {
		return nil, nil
	}
	return core.ResolveAllWithConcurrency(ctx, e.feed, ranges, e.parallelism)
}

// dependencyCoordinates resolves the dependency group of m that most
// closely matches the first target.
func (e *Engine) dependencyCoordinates(ctx context.Context, m *materialized, targets []framework.Identifier) ([]core.Coordinate, error) {
	group := selectDependencyGroup(m.pkg.DependencyGroups, targets)
	if group == nil || len(group.Dependencies) == 0 {
		return nil, nil
	}
	coords, err := core.ResolveAllWithConcurrency(ctx, e.feed, group.Dependencies, e.parallelism)
	if err != nil {
		return nil, &core.AcquireError{ID: m.coord.ID, Version: m.coord.Version.Normalized(), Targets: targets, Err: err}
	}
	return coords, nil
}

func selectDependencyGroup(groups []core.DependencyGroup, targets []framework.Identifier) *core.DependencyGroup {
	if len(groups) == 0 {
		return nil
	}
	candidates := make([]framework.Identifier, len(groups))
	for i, g := range groups {
		candidates[i] = g.Target
	}

	target := framework.Any
	if len(targets) > 0 {
		target = targets[0]
	}
	i := framework.Nearest(target, candidates)
	if i < 0 {
		return nil
	}
	return &groups[i]
}

// selectFiles picks the best folder of the first category that has one and
// copies its files under SelectedDir.
func (e *Engine) selectFiles(pkg *core.DownloadedPackage, targets []framework.Identifier) ([]string, error) {
	for _, category := range e.categories {
		folders := pkg.FoldersFor(category)
		candidates := make([]framework.Identifier, 0, len(folders))
		nonEmpty := make([]core.FolderGroup, 0, len(folders))
		for _, f := range folders {
			if len(f.Files) > 0 {
				candidates = append(candidates, f.Target)
				nonEmpty = append(nonEmpty, f)
			}
		}

		i, _ := framework.NearestInList(targets, candidates)
		if i < 0 {
			continue
		}
		chosen := nonEmpty[i]
		dest := filepath.Join(e.SelectedDir(), pkg.Coordinate.Dir(), strings.ToLower(category), chosen.Target.String())
		return copyFiles(chosen.Files, dest)
	}
	return nil, nil
}

// copyFiles copies files into dir, skipping files already present.
func copyFiles(files []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for _, src := range files {
		dst := filepath.Join(dir, filepath.Base(src))
		if _, err := os.Stat(dst); err != nil {
			if err := copyFile(src, dst); err != nil {
				return nil, err
			}
		}
		out = append(out, dst)
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := filepath.Join(filepath.Dir(dst), ".copy-"+uuid.NewString())
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		// Another acquisition sharing the cache copied it first.
		if _, statErr := os.Stat(dst); statErr == nil {
			return nil
		}
		return err
	}
	return nil
}

func ref(c core.Coordinate) string {
	return c.Key() + "@" + c.Version.Normalized()
}

func targetNames(targets []framework.Identifier) string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}
	return strings.Join(names, ",")
}
