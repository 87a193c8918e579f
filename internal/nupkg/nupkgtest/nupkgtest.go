// Package nupkgtest builds package archives for tests.
package nupkgtest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// Package describes an archive to build.
type Package struct {
	ID      string
	Version string
	// Groups maps a nuspec targetFramework ("" for an ungrouped list) to
	// "id version-range" dependency strings.
	Groups map[string][]string
	// Files maps archive paths ("lib/net45/Widgets.dll") to contents.
	Files map[string]string
}

// Bytes returns the archive as a zip.
func Bytes(t testing.TB, p Package) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	write(p.ID+".nuspec", Nuspec(p))
	write("[Content_Types].xml", `<?xml version="1.0"?><Types/>`)

	names := make([]string, 0, len(p.Files))
	for name := range p.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		write(name, p.Files[name])
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	return buf.Bytes()
}

// Write stores the archive at path and returns path.
func Write(t testing.TB, path string, p Package) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, Bytes(t, p), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Nuspec renders the manifest of p.
func Nuspec(p Package) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<package xmlns="http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd">` + "\n")
	b.WriteString("  <metadata>\n")
	fmt.Fprintf(&b, "    <id>%s</id>\n    <version>%s</version>\n", p.ID, p.Version)

	if len(p.Groups) > 0 {
		targets := make([]string, 0, len(p.Groups))
		for tf := range p.Groups {
			targets = append(targets, tf)
		}
		sort.Strings(targets)

		b.WriteString("    <dependencies>\n")
		for _, tf := range targets {
			if tf != "" {
				fmt.Fprintf(&b, "      <group targetFramework=%q>\n", tf)
			}
			for _, dep := range p.Groups[tf] {
				id, rng, _ := strings.Cut(dep, " ")
				fmt.Fprintf(&b, "        <dependency id=%q version=%q />\n", id, rng)
			}
			if tf != "" {
				b.WriteString("      </group>\n")
			}
		}
		b.WriteString("    </dependencies>\n")
	}

	b.WriteString("  </metadata>\n</package>\n")
	return b.String()
}
