// Package nupkg reads package archives and loads extracted package directories.
package nupkg

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Entry is one file inside a package archive.
type Entry struct {
	// Folder is the slash-separated directory of the entry ("lib/net45"), empty at the root.
	Folder string
	// RelPath is the slash-separated path inside the archive ("lib/net45/Widgets.dll").
	RelPath string

	file *zip.File
}

// Archive is an open package archive.
type Archive struct {
	rc      *zip.ReadCloser
	entries []Entry
}

// Open opens the archive at name.
func Open(name string) (*Archive, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", name, err)
	}

	a := &Archive{rc: rc}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rel := entryName(f.Name)
		if packagingMetadata(rel) {
			continue
		}
		folder := path.Dir(rel)
		if folder == "." {
			folder = ""
		}
		a.entries = append(a.entries, Entry{Folder: folder, RelPath: rel, file: f})
	}
	return a, nil
}

// Close releases the archive.
func (a *Archive) Close() error {
	return a.rc.Close()
}

// Entries returns every file entry in archive order.
func (a *Archive) Entries() []Entry {
	return a.entries
}

// Extract writes the named entries under dir. With no names every entry is written.
func (a *Archive) Extract(dir string, names ...string) error {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	for _, e := range a.entries {
		if len(want) > 0 && !want[e.RelPath] {
			continue
		}
		if err := extractEntry(e, dir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(e Entry, dir string) error {
	target := filepath.Join(dir, filepath.FromSlash(e.RelPath))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(filepath.Separator)) {
		return fmt.Errorf("archive entry %q escapes extraction directory", e.RelPath)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := e.file.Open()
	if err != nil {
		return fmt.Errorf("reading %s: %w", e.RelPath, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("extracting %s: %w", e.RelPath, err)
	}
	return dst.Close()
}

// entryName normalizes a zip entry name. Package archives percent-encode
// some characters in entry names ("%2B" for "+").
func entryName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if dec, err := url.PathUnescape(name); err == nil {
		name = dec
	}
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// packagingMetadata reports whether rel belongs to the archive container
// format rather than the package content.
func packagingMetadata(rel string) bool {
	switch {
	case rel == "[Content_Types].xml":
		return true
	case strings.HasPrefix(rel, "_rels/"), strings.HasPrefix(rel, "package/"):
		return true
	case strings.HasSuffix(rel, ".nupkg.metadata"), strings.HasSuffix(rel, ".p7s"):
		return true
	}
	return false
}
