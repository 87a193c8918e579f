package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	_ "github.com/git-pkgs/assemblies/all"
	"github.com/git-pkgs/assemblies/framework"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assemblies.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feed.Name != "nuget" {
		t.Errorf("expected nuget feed, got %q", cfg.Feed.Name)
	}
	if cfg.Feed.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Feed.Timeout)
	}
	if cfg.CacheDir == "" {
		t.Error("expected a default cache dir")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feed.Name != "nuget" {
		t.Errorf("expected defaults, got %+v", cfg.Feed)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
cache_dir = "/tmp/asm"
targets = ["uap10.0", "net48"]

[feed]
name = "folder"
url = "/srv/packages"
timeout = "5s"
max_retries = 2

[acquire]
parallelism = 3
dependencies = false
categories = ["lib"]

[references]
core_library = "/rt/mscorlib.dll"
core_library_version = "4.0.0.0"
metadata_root = "/opt/winmd"

[graph]
strict = true
cache_size = 64

[log]
level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.CacheDir != "/tmp/asm" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.Feed.Name != "folder" || cfg.Feed.URL != "/srv/packages" {
		t.Errorf("unexpected feed %+v", cfg.Feed)
	}
	if cfg.Feed.Timeout != 5*time.Second || cfg.Feed.MaxRetries != 2 {
		t.Errorf("unexpected feed tuning %+v", cfg.Feed)
	}
	if cfg.Acquire.Parallelism != 3 || cfg.Acquire.Dependencies == nil || *cfg.Acquire.Dependencies {
		t.Errorf("unexpected acquire settings %+v", cfg.Acquire)
	}
	if !cfg.Graph.Strict || cfg.Graph.CacheSize != 64 {
		t.Errorf("unexpected graph settings %+v", cfg.Graph)
	}

	targets, err := cfg.TargetPlatforms()
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 2 || targets[0].Family != framework.UAP || targets[1].String() != "net48" {
		t.Errorf("unexpected targets %v", targets)
	}

	if n := len(cfg.EngineOptions(log.Default())); n != 4 {
		t.Errorf("expected 4 engine options, got %d", n)
	}
	if n := len(cfg.ResolverOptions(log.Default())); n != 3 {
		t.Errorf("expected 3 resolver options, got %d", n)
	}
	if n := len(cfg.GraphOptions(log.Default())); n != 3 {
		t.Errorf("expected 3 graph options, got %d", n)
	}
	if deps := cfg.PlatformDeps(nil, nil); deps.MetadataRoot != "/opt/winmd" {
		t.Errorf("unexpected platform deps %+v", deps)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `cache_dir = `},
		{"target", `targets = ["commodore64"]`},
		{"level", "[log]\nlevel = \"chatty\""},
		{"core version", "[references]\ncore_library_version = \"x.y\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASSEMBLIES_CACHE_DIR", "/env/cache")
	t.Setenv("ASSEMBLIES_FEED", "folder")
	t.Setenv("ASSEMBLIES_TARGETS", "net48, netstandard2.0")
	t.Setenv("ASSEMBLIES_PARALLELISM", "2")
	t.Setenv("ASSEMBLIES_DEPENDENCIES", "false")
	t.Setenv("ASSEMBLIES_STRICT", "true")
	t.Setenv("ASSEMBLIES_FEED_TIMEOUT", "1m")

	path := writeConfig(t, `cache_dir = "/file/cache"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CacheDir != "/env/cache" {
		t.Errorf("env should win over file, got %q", cfg.CacheDir)
	}
	if cfg.Feed.Name != "folder" || cfg.Feed.Timeout != time.Minute {
		t.Errorf("unexpected feed %+v", cfg.Feed)
	}
	if strings.Join(cfg.Targets, "|") != "net48|netstandard2.0" {
		t.Errorf("unexpected targets %v", cfg.Targets)
	}
	if cfg.Acquire.Parallelism != 2 || *cfg.Acquire.Dependencies || !cfg.Graph.Strict {
		t.Errorf("unexpected overrides %+v %+v", cfg.Acquire, cfg.Graph)
	}
}

func TestEnvInvalid(t *testing.T) {
	t.Setenv("ASSEMBLIES_PARALLELISM", "many")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "ASSEMBLIES_PARALLELISM") {
		t.Errorf("expected parallelism error, got %v", err)
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "id", "Widgets")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "id=Widgets") {
		t.Errorf("expected warn line, got %q", out)
	}
}

func TestOpenFeed(t *testing.T) {
	cfg := Default()
	cfg.Feed.Name = "folder"
	cfg.Feed.URL = t.TempDir()

	feed, err := cfg.OpenFeed()
	if err != nil {
		t.Fatalf("OpenFeed failed: %v", err)
	}
	if feed.Name() != "folder" {
		t.Errorf("expected folder feed, got %s", feed.Name())
	}

	cfg.Feed.Name = "gopher"
	if _, err := cfg.OpenFeed(); err == nil {
		t.Error("expected error for unknown feed")
	}
}
