package acquire

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/assemblies/filegroup"
	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/internal/core"
	"github.com/git-pkgs/assemblies/internal/folder"
	"github.com/git-pkgs/assemblies/internal/nupkg/nupkgtest"
	"github.com/git-pkgs/assemblies/version"
)

// countingFeed wraps a feed, counting downloads and injecting failures.
type countingFeed struct {
	core.Feed

	mu        sync.Mutex
	downloads map[string]int
	fail      map[string]error
}

func newCountingFeed(inner core.Feed) *countingFeed {
	return &countingFeed{Feed: inner, downloads: make(map[string]int), fail: make(map[string]error)}
}

func (f *countingFeed) Download(ctx context.Context, coord core.Coordinate, cacheRoot string) (*core.DownloadResult, error) {
	f.mu.Lock()
	f.downloads[coord.String()]++
	err := f.fail[coord.String()]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Feed.Download(ctx, coord, cacheRoot)
}

func (f *countingFeed) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.downloads {
		n += c
	}
	return n
}

func seed(t *testing.T, root string, pkgs ...nupkgtest.Package) {
	t.Helper()
	for _, p := range pkgs {
		path := filepath.Join(root, p.ID, p.Version, p.ID+"."+p.Version+".nupkg")
		nupkgtest.Write(t, path, p)
	}
}

func lib(id, ver string, deps ...string) nupkgtest.Package {
	p := nupkgtest.Package{
		ID:      id,
		Version: ver,
		Files:   map[string]string{"lib/net45/" + id + ".dll": id + " " + ver},
	}
	if len(deps) > 0 {
		p.Groups = map[string][]string{"net45": deps}
	}
	return p
}

func coord(id, ver string) core.Coordinate {
	return core.MustCoordinate(id, ver)
}

func newEngine(t *testing.T, root string, opts ...Option) (*Engine, *countingFeed) {
	t.Helper()
	feed := newCountingFeed(folder.New(root))
	opts = append([]Option{WithSupport(nil)}, opts...)
	return New(feed, t.TempDir(), opts...), feed
}

func names(g *filegroup.Group) []string {
	var out []string
	for _, p := range g.Files() {
		out = append(out, filepath.Base(p))
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

var net48 = []framework.Identifier{framework.MustParse("net48")}

func TestAcquireWithDependencies(t *testing.T) {
	root := t.TempDir()
	seed(t, root,
		lib("App", "1.0.0", "Helpers [1.0,)"),
		lib("Helpers", "1.0.0"),
		lib("Helpers", "1.2.0"),
	)
	e, _ := newEngine(t, root)

	bundle, err := e.Acquire(context.Background(), []core.Coordinate{coord("App", "1.0.0")}, net48, false)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	include := names(bundle.Include)
	if len(include) != 1 || include[0] != "App.dll" {
		t.Errorf("expected include [App.dll], got %v", include)
	}
	support := bundle.Support.Files()
	if len(support) != 1 {
		t.Fatalf("expected one support file, got %v", support)
	}
	data, err := os.ReadFile(support[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Helpers 1.2.0" {
		t.Errorf("expected highest Helpers, got %q", data)
	}
	if !strings.HasPrefix(support[0], e.SelectedDir()) {
		t.Errorf("expected selected file under %s, got %s", e.SelectedDir(), support[0])
	}
}

func TestAcquireIdempotent(t *testing.T) {
	root := t.TempDir()
	seed(t, root, lib("App", "1.0.0", "Helpers [1.0,)"), lib("Helpers", "1.0.0"))
	e, feed := newEngine(t, root)
	coords := []core.Coordinate{coord("App", "1.0.0")}

	first, err := e.Acquire(context.Background(), coords, net48, false)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	downloads := feed.total()
	if downloads != 2 {
		t.Errorf("expected 2 downloads, got %d", downloads)
	}

	second, err := e.Acquire(context.Background(), coords, net48, false)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if feed.total() != downloads {
		t.Errorf("expected no new downloads, got %d", feed.total()-downloads)
	}

	a, b := first.Include.Files(), second.Include.Files()
	if len(a) != len(b) || a[0] != b[0] {
		t.Errorf("include differs: %v vs %v", a, b)
	}
	a, b = first.Support.Files(), second.Support.Files()
	if len(a) != len(b) || a[0] != b[0] {
		t.Errorf("support differs: %v vs %v", a, b)
	}
}

func TestAcquireVersionArbitration(t *testing.T) {
	for _, parallelism := range []int{1, 8} {
		root := t.TempDir()
		seed(t, root,
			lib("A", "1.0.0", "Shared [1.0.0]"),
			lib("B", "1.0.0", "Shared [2.0.0]"),
			lib("Shared", "1.0.0"),
			lib("Shared", "2.0.0"),
		)
		e, _ := newEngine(t, root, WithParallelism(parallelism))

		bundle, err := e.Acquire(context.Background(),
			[]core.Coordinate{coord("A", "1.0.0"), coord("B", "1.0.0")}, net48, false)
		if err != nil {
			t.Fatalf("parallelism %d: Acquire failed: %v", parallelism, err)
		}

		var shared []string
		for _, p := range bundle.Support.Files() {
			if filepath.Base(p) == "Shared.dll" {
				shared = append(shared, p)
			}
		}
		if len(shared) != 1 {
			t.Fatalf("parallelism %d: expected one Shared.dll, got %v", parallelism, shared)
		}
		data, _ := os.ReadFile(shared[0])
		if string(data) != "Shared 2.0.0" {
			t.Errorf("parallelism %d: expected Shared 2.0.0, got %q", parallelism, data)
		}
	}
}

func TestAcquireDirectAndTransitiveVersions(t *testing.T) {
	tests := []struct {
		name   string
		coords []core.Coordinate
	}{
		{"direct first", []core.Coordinate{coord("Shared", "1.0.0"), coord("App", "1.0.0")}},
		{"dependency first", []core.Coordinate{coord("App", "1.0.0"), coord("Shared", "1.0.0")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			seed(t, root,
				lib("App", "1.0.0", "Shared [2.0.0]"),
				lib("Shared", "1.0.0"),
				lib("Shared", "2.0.0"),
			)
			e, _ := newEngine(t, root, WithParallelism(1))

			bundle, err := e.Acquire(context.Background(), tt.coords, net48, false)
			if err != nil {
				t.Fatalf("Acquire failed: %v", err)
			}

			var shared []string
			for _, p := range append(bundle.Include.Files(), bundle.Support.Files()...) {
				if filepath.Base(p) == "Shared.dll" {
					shared = append(shared, p)
				}
			}
			if len(shared) != 1 {
				t.Fatalf("expected one Shared.dll, got %v", shared)
			}
			if !bundle.Include.Contains(shared[0]) {
				t.Errorf("expected Shared.dll to stay in include, got %v", bundle.Include.Files())
			}
			if data, _ := os.ReadFile(shared[0]); string(data) != "Shared 2.0.0" {
				t.Errorf("expected Shared 2.0.0, got %q", data)
			}
		})
	}
}

func TestAcquireConcurrentCallsShareCache(t *testing.T) {
	root := t.TempDir()
	seed(t, root,
		lib("App", "1.0.0", "Helpers [1.0,)"),
		lib("Helpers", "1.0.0"),
	)
	e, _ := newEngine(t, root)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	bundles := make([]*filegroup.Bundle, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bundles[i], errs[i] = e.Acquire(context.Background(), []core.Coordinate{coord("App", "1.0.0")}, net48, false)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: Acquire failed: %v", i, err)
		}
		include := bundles[i].Include.Files()
		if len(include) != 1 {
			t.Fatalf("caller %d: expected one include file, got %v", i, include)
		}
		if data, _ := os.ReadFile(include[0]); string(data) != "App 1.0.0" {
			t.Errorf("caller %d: unexpected content %q", i, data)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(bundles[0].Include.Files()[0]))
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".copy-") {
			t.Errorf("temporary file left behind: %s", entry.Name())
		}
	}
}

func TestAcquireGroupExclusivity(t *testing.T) {
	root := t.TempDir()
	seed(t, root, lib("App", "1.0.0", "Helpers [1.0,)"), lib("Helpers", "1.0.0"))
	e, _ := newEngine(t, root)

	bundle, err := e.Acquire(context.Background(),
		[]core.Coordinate{coord("App", "1.0.0"), coord("Helpers", "1.0.0")}, net48, false)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	include := names(bundle.Include)
	if !contains(include, "Helpers.dll") || !contains(include, "App.dll") {
		t.Errorf("expected both packages included, got %v", include)
	}
	if bundle.Support.Len() != 0 {
		t.Errorf("expected empty support, got %v", bundle.Support.Files())
	}
	for _, p := range bundle.Include.Files() {
		if bundle.Support.Contains(p) {
			t.Errorf("%s in both groups", p)
		}
	}
}

func TestAcquireSupportOnly(t *testing.T) {
	root := t.TempDir()
	seed(t, root, lib("App", "1.0.0", "Helpers [1.0,)"), lib("Helpers", "1.0.0"))
	e, _ := newEngine(t, root)

	bundle, err := e.Acquire(context.Background(), []core.Coordinate{coord("App", "1.0.0")}, net48, true)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if bundle.Include.Len() != 0 {
		t.Errorf("expected empty include, got %v", bundle.Include.Files())
	}
	if bundle.Support.Len() != 2 {
		t.Errorf("expected 2 support files, got %v", bundle.Support.Files())
	}
}

func TestAcquireWithoutDependencies(t *testing.T) {
	root := t.TempDir()
	seed(t, root, lib("App", "1.0.0", "Helpers [1.0,)"), lib("Helpers", "1.0.0"))
	e, feed := newEngine(t, root, WithDependencies(false))

	bundle, err := e.Acquire(context.Background(), []core.Coordinate{coord("App", "1.0.0")}, net48, false)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if bundle.Support.Len() != 0 {
		t.Errorf("expected no support files, got %v", bundle.Support.Files())
	}
	if feed.total() != 1 {
		t.Errorf("expected 1 download, got %d", feed.total())
	}
}

func TestAcquireFallbackOrdering(t *testing.T) {
	root := t.TempDir()
	seed(t, root, nupkgtest.Package{
		ID:      "Portable",
		Version: "1.0.0",
		Files: map[string]string{
			"lib/net45/Portable.dll": "desktop",
			"lib/win8/Portable.dll":  "store",
		},
	})
	e, _ := newEngine(t, root)
	targets := []framework.Identifier{framework.MustParse("uap10.0"), framework.MustParse("net48")}

	bundle, err := e.Acquire(context.Background(), []core.Coordinate{coord("Portable", "1.0.0")}, targets, false)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	files := bundle.Include.Files()
	if len(files) != 1 {
		t.Fatalf("expected one file, got %v", files)
	}
	data, _ := os.ReadFile(files[0])
	if string(data) != "desktop" {
		t.Errorf("expected the net45 folder, got %q", data)
	}
	if !strings.Contains(filepath.ToSlash(files[0]), "/lib/net45/") {
		t.Errorf("unexpected selected path %s", files[0])
	}
}

func TestAcquireCategoryOrder(t *testing.T) {
	root := t.TempDir()
	seed(t, root, nupkgtest.Package{
		ID:      "Facade",
		Version: "1.0.0",
		Files: map[string]string{
			"ref/net45/Facade.dll": "reference",
			"lib/net45/Facade.dll": "implementation",
		},
	})
	e, _ := newEngine(t, root)

	bundle, err := e.Acquire(context.Background(), []core.Coordinate{coord("Facade", "1.0.0")}, net48, false)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	files := bundle.Include.Files()
	if len(files) != 1 {
		t.Fatalf("expected one file, got %v", files)
	}
	if data, _ := os.ReadFile(files[0]); string(data) != "reference" {
		t.Errorf("expected ref folder to win, got %q", data)
	}

	e, _ = newEngine(t, root, WithCategories(core.CategoryLib))
	bundle, err = e.Acquire(context.Background(), []core.Coordinate{coord("Facade", "1.0.0")}, net48, false)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if data, _ := os.ReadFile(bundle.Include.Files()[0]); string(data) != "implementation" {
		t.Errorf("expected lib folder, got %q", data)
	}
}

func TestAcquireRangesEndToEnd(t *testing.T) {
	root := t.TempDir()
	for _, v := range []string{"1.9.0", "2.0.0", "2.4.0", "3.0.0"} {
		seed(t, root, lib("Widgets", v))
	}
	seed(t, root, nupkgtest.Package{
		ID:      "Base.Library",
		Version: "1.0.0",
		Files:   map[string]string{"ref/net45/System.Runtime.dll": "base"},
	})

	support := func(target framework.Identifier) []core.LibraryRange {
		return []core.LibraryRange{{ID: "Base.Library", Range: version.MustParseRange("1.0.0")}}
	}
	e, _ := newEngine(t, root, WithSupport(support))

	ranges := []core.LibraryRange{{ID: "Widgets", Range: version.MustParseRange("[2.0,3.0)")}}
	bundle, err := e.AcquireRanges(context.Background(), ranges, net48, false)
	if err != nil {
		t.Fatalf("AcquireRanges failed: %v", err)
	}

	include := bundle.Include.Files()
	if len(include) != 1 {
		t.Fatalf("expected one include file, got %v", include)
	}
	if data, _ := os.ReadFile(include[0]); string(data) != "Widgets 2.4.0" {
		t.Errorf("expected Widgets 2.4.0, got %q", data)
	}
	if got := names(bundle.Support); len(got) != 1 || got[0] != "System.Runtime.dll" {
		t.Errorf("expected base library in support, got %v", got)
	}
}

func TestAcquireUnavailableIsSoft(t *testing.T) {
	root := t.TempDir()
	seed(t, root, lib("App", "1.0.0", "Ghost [1.0,)"))
	// Listed but without an archive.
	if err := os.MkdirAll(filepath.Join(root, "Ghost", "1.0.0"), 0o755); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	e, feed := newEngine(t, root, WithLogger(log.New(&buf)))

	bundle, err := e.Acquire(context.Background(), []core.Coordinate{coord("App", "1.0.0")}, net48, false)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if got := names(bundle.Include); len(got) != 1 || got[0] != "App.dll" {
		t.Errorf("expected App.dll, got %v", got)
	}
	if bundle.Support.Len() != 0 {
		t.Errorf("expected no support files, got %v", bundle.Support.Files())
	}
	if !strings.Contains(buf.String(), "package unavailable") || !strings.Contains(buf.String(), "Ghost") {
		t.Errorf("expected unavailable warning, got %q", buf.String())
	}
	if n := feed.downloads["Ghost@1.0.0"]; n != 1 {
		t.Errorf("expected Ghost to be tried once, got %d", n)
	}
}

func TestAcquireTransportErrorAborts(t *testing.T) {
	root := t.TempDir()
	seed(t, root, lib("App", "1.0.0", "Helpers [1.0,)"), lib("Helpers", "1.0.0"))
	e, feed := newEngine(t, root)
	reset := errors.New("connection reset")
	feed.fail["Helpers@1.0.0"] = reset

	_, err := e.Acquire(context.Background(), []core.Coordinate{coord("App", "1.0.0")}, net48, false)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, reset) {
		t.Errorf("expected wrapped transport error, got %v", err)
	}
	var acqErr *core.AcquireError
	if !errors.As(err, &acqErr) {
		t.Fatalf("expected AcquireError, got %T", err)
	}
	if acqErr.ID != "Helpers" || acqErr.Version != "1.0.0" {
		t.Errorf("unexpected context %+v", acqErr)
	}
	for _, want := range []string{"Helpers", "1.0.0", "net48"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestAcquireUnresolvedDependency(t *testing.T) {
	root := t.TempDir()
	seed(t, root, lib("App", "1.0.0", "Helpers [9.0,)"), lib("Helpers", "1.0.0"))
	e, _ := newEngine(t, root)

	_, err := e.Acquire(context.Background(), []core.Coordinate{coord("App", "1.0.0")}, net48, false)
	if !errors.Is(err, core.ErrUnresolved) {
		t.Errorf("expected ErrUnresolved, got %v", err)
	}
}

func TestAcquireRejectsUnversioned(t *testing.T) {
	e, _ := newEngine(t, t.TempDir())
	_, err := e.Acquire(context.Background(), []core.Coordinate{{ID: "App"}}, net48, false)
	if !errors.Is(err, core.ErrUnresolved) {
		t.Errorf("expected ErrUnresolved, got %v", err)
	}
}

func TestSelectDependencyGroup(t *testing.T) {
	groups := []core.DependencyGroup{
		{Target: framework.Any},
		{Target: framework.MustParse("net45")},
		{Target: framework.MustParse("net40")},
		{Target: framework.MustParse("netstandard2.0")},
	}

	tests := []struct {
		targets []string
		want    string
	}{
		{[]string{"net48"}, "net45"},
		{[]string{"net40"}, "net40"},
		{[]string{"net35"}, "any"},
		{[]string{"netstandard2.1"}, "netstandard2.0"},
		{nil, "any"},
	}

	for _, tt := range tests {
		targets, err := framework.ParseList(tt.targets...)
		if err != nil {
			t.Fatal(err)
		}
		g := selectDependencyGroup(groups, targets)
		if g == nil {
			t.Errorf("%v: no group selected", tt.targets)
			continue
		}
		if g.Target.String() != tt.want {
			t.Errorf("%v: got %s, want %s", tt.targets, g.Target, tt.want)
		}
	}

	if g := selectDependencyGroup(nil, net48); g != nil {
		t.Errorf("expected nil for no groups, got %v", g)
	}
}
