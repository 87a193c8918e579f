package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/git-pkgs/assemblies/client"
	"github.com/git-pkgs/assemblies/framework"
)

// ErrNotFound is returned when a package or version is not found.
var ErrNotFound = client.ErrNotFound

var (
	// ErrUnresolved is returned when no published version satisfies a range.
	ErrUnresolved = errors.New("no version satisfies range")

	// ErrUnavailable is returned when a feed cannot supply a package.
	ErrUnavailable = errors.New("package unavailable")

	// ErrPlatformUnsupported is returned when an operation needs an OS or
	// platform this process is not running on.
	ErrPlatformUnsupported = errors.New("platform unsupported")
)

type (
	HTTPError      = client.HTTPError
	NotFoundError  = client.NotFoundError
	RateLimitError = client.RateLimitError
)

// ResolutionError reports a range that no published version satisfies.
type ResolutionError struct {
	ID        string
	Range     string
	Available []string
}

func (e *ResolutionError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("resolve %s %s: no versions published", e.ID, e.Range)
	}
	return fmt.Sprintf("resolve %s %s: none of [%s] satisfies the range",
		e.ID, e.Range, strings.Join(e.Available, ", "))
}

func (e *ResolutionError) Unwrap() error {
	return ErrUnresolved
}

// AcquireError carries the package and targets that an acquisition step failed for.
type AcquireError struct {
	ID      string
	Version string
	Targets []framework.Identifier
	Err     error
}

func (e *AcquireError) Error() string {
	targets := make([]string, len(e.Targets))
	for i, t := range e.Targets {
		targets[i] = t.String()
	}
	return fmt.Sprintf("acquire %s %s for [%s]: %v", e.ID, e.Version, strings.Join(targets, ", "), e.Err)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// PlatformUnsupportedError names the operation and the platform it needs.
type PlatformUnsupportedError struct {
	Op       string
	Required string
	Current  string
}

func (e *PlatformUnsupportedError) Error() string {
	return fmt.Sprintf("%s requires %s, running on %s", e.Op, e.Required, e.Current)
}

func (e *PlatformUnsupportedError) Unwrap() error {
	return ErrPlatformUnsupported
}
