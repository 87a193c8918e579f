package platform

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/git-pkgs/assemblies/filegroup"
	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/internal/core"
	"github.com/git-pkgs/assemblies/version"
)

func init() {
	Register("uwp", func(deps Deps) Extractor { return &uwp{deps: deps} })
}

// uwp handles Universal Windows Platform, Windows Store and Windows Phone
// targets. Besides the platform package it includes the .winmd metadata
// files of the Windows SDK.
type uwp struct {
	deps Deps
}

func (u *uwp) Platform() string { return "uwp" }

func (u *uwp) CanHandle(targets []framework.Identifier) bool {
	if len(targets) == 0 {
		return false
	}
	switch targets[0].Family {
	case framework.UAP, framework.Windows, framework.WindowsPhone:
		return true
	}
	return false
}

func (u *uwp) SupportRanges(target framework.Identifier) []core.LibraryRange {
	if target.Family != framework.UAP {
		return nil
	}
	return []core.LibraryRange{{
		ID:    "Microsoft.NETCore.UniversalWindowsPlatform",
		Range: version.MustParseRange("6.2.14"),
	}}
}

func (u *uwp) Extract(ctx context.Context, targets []framework.Identifier) (*filegroup.Bundle, error) {
	if !u.CanHandle(targets) {
		return nil, fmt.Errorf("uwp: cannot handle %v", targets)
	}
	root, err := MetadataRoot(u.deps.MetadataRoot)
	if err != nil {
		return nil, err
	}

	bundle := filegroup.NewBundle()
	if ranges := u.SupportRanges(targets[0]); len(ranges) > 0 {
		if u.deps.Acquirer == nil {
			return nil, ErrNoAcquirer
		}
		acquired, err := u.deps.Acquirer.AcquireRanges(ctx, ranges, targets, false)
		if err != nil {
			return nil, err
		}
		bundle.Merge(acquired)
	}

	winmd, err := metadataFiles(root)
	if err != nil {
		return nil, err
	}
	u.deps.Logger.Debug("platform metadata", "root", root, "files", len(winmd))
	bundle.AddInclude(winmd...)
	return bundle, nil
}

// MetadataRoot returns configured when set, else the Windows SDK union
// metadata folder. Without a configured root the lookup needs Windows.
func MetadataRoot(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if runtime.GOOS != "windows" {
		return "", &core.PlatformUnsupportedError{
			Op:       "locate Windows metadata",
			Required: "windows",
			Current:  runtime.GOOS,
		}
	}
	base := os.Getenv("ProgramFiles(x86)")
	if base == "" {
		base = `C:\Program Files (x86)`
	}
	return filepath.Join(base, "Windows Kits", "10", "UnionMetadata"), nil
}

func metadataFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".winmd") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading metadata root %s: %w", root, err)
	}
	return files, nil
}
