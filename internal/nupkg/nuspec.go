package nupkg

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/git-pkgs/assemblies/framework"
	"github.com/git-pkgs/assemblies/internal/core"
	"github.com/git-pkgs/assemblies/version"
)

// Manifest is the parsed .nuspec of a package.
type Manifest struct {
	ID               string
	Version          string
	DependencyGroups []core.DependencyGroup
}

type nuspec struct {
	Metadata struct {
		ID           string `xml:"id"`
		Version      string `xml:"version"`
		Dependencies struct {
			Groups []struct {
				TargetFramework string             `xml:"targetFramework,attr"`
				Dependencies    []nuspecDependency `xml:"dependency"`
			} `xml:"group"`
			Dependencies []nuspecDependency `xml:"dependency"`
		} `xml:"dependencies"`
	} `xml:"metadata"`
}

type nuspecDependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

// ParseManifest reads a .nuspec document. Dependencies declared outside a
// group, and groups without a target framework, apply to every target.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var doc nuspec
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing nuspec: %w", err)
	}

	m := &Manifest{
		ID:      strings.TrimSpace(doc.Metadata.ID),
		Version: strings.TrimSpace(doc.Metadata.Version),
	}
	if m.ID == "" {
		return nil, fmt.Errorf("parsing nuspec: missing id")
	}

	if len(doc.Metadata.Dependencies.Dependencies) > 0 {
		deps, err := convertDependencies(doc.Metadata.Dependencies.Dependencies)
		if err != nil {
			return nil, err
		}
		m.DependencyGroups = append(m.DependencyGroups, core.DependencyGroup{Target: framework.Any, Dependencies: deps})
	}

	for _, g := range doc.Metadata.Dependencies.Groups {
		target := framework.Any
		if tf := strings.TrimSpace(g.TargetFramework); tf != "" {
			id, err := framework.Parse(tf)
			if err != nil {
				return nil, fmt.Errorf("parsing nuspec %s: %w", m.ID, err)
			}
			target = id
		}
		deps, err := convertDependencies(g.Dependencies)
		if err != nil {
			return nil, fmt.Errorf("parsing nuspec %s: %w", m.ID, err)
		}
		m.DependencyGroups = append(m.DependencyGroups, core.DependencyGroup{Target: target, Dependencies: deps})
	}
	return m, nil
}

func convertDependencies(in []nuspecDependency) ([]core.Dependency, error) {
	out := make([]core.Dependency, 0, len(in))
	for _, d := range in {
		rng := version.All
		if v := strings.TrimSpace(d.Version); v != "" {
			r, err := version.ParseRange(v)
			if err != nil {
				return nil, fmt.Errorf("dependency %s: %w", d.ID, err)
			}
			rng = r
		}
		out = append(out, core.Dependency{ID: d.ID, Range: rng})
	}
	return out, nil
}
