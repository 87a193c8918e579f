package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/git-pkgs/assemblies/filegroup"
	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/internal/core"
	"github.com/git-pkgs/assemblies/version"
)

// ErrNoAcquirer is returned by Extract when the extractor was created without an Acquirer.
var ErrNoAcquirer = errors.New("platform extractor has no acquirer")

func init() {
	Register("dotnet", func(deps Deps) Extractor { return &dotnet{deps: deps} })
}

// dotnet handles .NET Framework, .NET Core / .NET 5+ and .NET Standard targets.
type dotnet struct {
	deps Deps
}

func (d *dotnet) Platform() string { return "dotnet" }

func (d *dotnet) CanHandle(targets []framework.Identifier) bool {
	if len(targets) == 0 {
		return false
	}
	switch targets[0].Family {
	case framework.NETFramework, framework.NETCoreApp, framework.NETStandard:
		return true
	}
	return false
}

// SupportRanges returns the reference pack for target.
func (d *dotnet) SupportRanges(target framework.Identifier) []core.LibraryRange {
	v := target.Version
	switch target.Family {
	case framework.NETFramework:
		return []core.LibraryRange{{
			ID:    "Microsoft.NETFramework.ReferenceAssemblies." + target.String(),
			Range: version.MustParseRange("1.0.3"),
		}}
	case framework.NETCoreApp:
		if v.Major < 3 {
			return []core.LibraryRange{{
				ID:    "Microsoft.NETCore.App",
				Range: version.MustParseRange(fmt.Sprintf("[%d.%d.0,%d.%d.0)", v.Major, v.Minor, v.Major, v.Minor+1)),
			}}
		}
		return []core.LibraryRange{{
			ID:    "Microsoft.NETCore.App.Ref",
			Range: version.MustParseRange(fmt.Sprintf("[%d.%d.0,%d.%d.0)", v.Major, v.Minor, v.Major, v.Minor+1)),
		}}
	case framework.NETStandard:
		switch {
		case v.Major > 2 || (v.Major == 2 && v.Minor >= 1):
			return []core.LibraryRange{{ID: "NETStandard.Library.Ref", Range: version.MustParseRange("2.1.0")}}
		case v.Major == 2:
			return []core.LibraryRange{{ID: "NETStandard.Library", Range: version.MustParseRange("2.0.3")}}
		default:
			return []core.LibraryRange{{ID: "NETStandard.Library", Range: version.MustParseRange("1.6.1")}}
		}
	}
	return nil
}

func (d *dotnet) Extract(ctx context.Context, targets []framework.Identifier) (*filegroup.Bundle, error) {
	if !d.CanHandle(targets) {
		return nil, fmt.Errorf("dotnet: cannot handle %v", targets)
	}
	if d.deps.Acquirer == nil {
		return nil, ErrNoAcquirer
	}
	return d.deps.Acquirer.AcquireRanges(ctx, d.SupportRanges(targets[0]), targets, false)
}
