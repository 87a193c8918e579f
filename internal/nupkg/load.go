package nupkg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/internal/core"
)

// categories are the top-level archive folders that hold selectable files.
var categories = map[string]bool{
	core.CategoryRef:   true,
	core.CategoryLib:   true,
	core.CategoryBuild: true,
}

// Install extracts the archive at archivePath into cacheRoot/{id}/{version}
// and loads it. Extraction goes to a staging directory that is renamed into
// place once complete, so an existing package directory is always whole.
// If the directory already exists it is loaded as is.
func Install(archivePath, cacheRoot string, coord core.Coordinate) (*core.DownloadedPackage, error) {
	dest := filepath.Join(cacheRoot, coord.Dir())
	if exists(dest) {
		return Load(dest, coord)
	}

	a, err := Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	staging := filepath.Join(cacheRoot, ".staging-"+uuid.NewString())
	if err := a.Extract(staging); err != nil {
		_ = os.RemoveAll(staging)
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		_ = os.RemoveAll(staging)
		return nil, err
	}
	if err := os.Rename(staging, dest); err != nil {
		_ = os.RemoveAll(staging)
		// Lost a race with another extraction of the same package.
		if !exists(dest) {
			return nil, fmt.Errorf("installing %s: %w", coord, err)
		}
	}
	return Load(dest, coord)
}

// Load reads an extracted package directory: its manifest and the files of
// every {category}/{framework} folder. Files directly under a category
// folder belong to framework.Any. Folders whose name is not a framework
// are skipped.
func Load(dir string, coord core.Coordinate) (*core.DownloadedPackage, error) {
	pkg := &core.DownloadedPackage{Coordinate: coord, Root: dir}

	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	if manifest != nil {
		pkg.DependencyGroups = manifest.DependencyGroups
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() || !categories[strings.ToLower(e.Name())] {
			continue
		}
		groups, err := loadCategory(filepath.Join(dir, e.Name()), strings.ToLower(e.Name()))
		if err != nil {
			return nil, err
		}
		pkg.Folders = append(pkg.Folders, groups...)
	}
	return pkg, nil
}

func loadCategory(dir, category string) ([]core.FolderGroup, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var groups []core.FolderGroup
	anyGroup := core.FolderGroup{Category: category, Target: framework.Any, Folder: category}
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if !e.IsDir() {
			anyGroup.Files = append(anyGroup.Files, full)
			continue
		}
		target, err := framework.Parse(e.Name())
		if err != nil {
			continue
		}
		files, err := listFiles(full)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}
		groups = append(groups, core.FolderGroup{
			Category: category,
			Target:   target,
			Folder:   category + "/" + e.Name(),
			Files:    files,
		})
	}
	if len(anyGroup.Files) > 0 {
		groups = append(groups, anyGroup)
	}
	return groups, nil
}

// listFiles returns the regular files directly inside dir. Nested folders
// hold satellite resources and are not selectable.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func readManifest(dir string) (*Manifest, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.nuspec"))
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	f, err := os.Open(matches[0])
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseManifest(f)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
