// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stamp.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Registry.Kind != RegistryNPM {
		t.Errorf("registry.kind = %s", cfg.Registry.Kind)
	}
	if cfg.Retention.MaxVersions != 150 || cfg.Retention.MinAgeDays != 30 || !cfg.Retention.Enabled {
		t.Errorf("retention = %+v", cfg.Retention)
	}
	if cfg.Fingerprint.Algorithm != "sha256" || cfg.Fingerprint.Length != 12 {
		t.Errorf("fingerprint = %+v", cfg.Fingerprint)
	}
}

func TestLoad_RequiresStampConfig(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when STAMP_CONFIG not set")
	}
	if !strings.HasPrefix(err.Error(), "STAMP_CONFIG environment variable not set") {
		t.Errorf("error = %q", err)
	}
}

func TestLoad_WithStampConfig(t *testing.T) {
	path := writeConfig(t, `
registry:
  kind: directory
  dir: registry
  compression: lz4
branches:
  source: static
  names: [main, feature/login]
packages:
  - dir: packages/widget
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Registry.Kind != RegistryDirectory || cfg.Registry.Compression != "lz4" {
		t.Errorf("registry = %+v", cfg.Registry)
	}
	// Unset fields keep their defaults.
	if cfg.Retention.MaxVersions != 150 {
		t.Errorf("max_versions = %d, want default 150", cfg.Retention.MaxVersions)
	}

	base := filepath.Dir(path)
	if got := cfg.RegistryDir(); got != filepath.Join(base, "registry") {
		t.Errorf("RegistryDir = %s", got)
	}
	if got := cfg.OutputDir(cfg.Packages[0]); got != filepath.Join(base, "packages/widget/dist") {
		t.Errorf("OutputDir = %s", got)
	}
}

func TestLoadFile_VariableExpansion(t *testing.T) {
	t.Setenv("STAMP_TEST_REGISTRY", "https://npm.internal.example")
	t.Setenv("STAMP_TEST_UNSET", "")
	path := writeConfig(t, `
registry:
  url: ${STAMP_TEST_REGISTRY}
branches:
  owner: ${STAMP_TEST_UNSET:-acme}
  repo: widgets
packages:
  - dir: ${STAMP_TEST_UNSET:-pkg}
    output: ${STAMP_TEST_UNSET}build
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Registry.URL != "https://npm.internal.example" {
		t.Errorf("registry.url = %q", cfg.Registry.URL)
	}
	if cfg.Branches.Owner != "acme" {
		t.Errorf("branches.owner = %q", cfg.Branches.Owner)
	}
	if cfg.Packages[0].Dir != "pkg" || cfg.Packages[0].Output != "build" {
		t.Errorf("package = %+v", cfg.Packages[0])
	}
}

func TestApplyEnvironmentDefaults(t *testing.T) {
	env := map[string]string{
		"GITHUB_REPOSITORY": "acme/widgets",
		"GITHUB_API_URL":    "https://ghe.example/api/v3",
	}
	cfg := Default()
	cfg.applyEnvironmentDefaults(func(key string) string { return env[key] })
	if cfg.Branches.Owner != "acme" || cfg.Branches.Repo != "widgets" {
		t.Errorf("owner/repo = %s/%s", cfg.Branches.Owner, cfg.Branches.Repo)
	}
	if cfg.Branches.APIURL != "https://ghe.example/api/v3" {
		t.Errorf("api_url = %s", cfg.Branches.APIURL)
	}

	explicit := Default()
	explicit.Branches.Owner = "other"
	explicit.Branches.Repo = "repo"
	explicit.applyEnvironmentDefaults(func(key string) string { return env[key] })
	if explicit.Branches.Owner != "other" {
		t.Error("environment overrode explicit owner")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Registry.Kind = "pypi"
	cfg.Branches.Source = "svn"
	cfg.Retention.MaxVersions = 0
	cfg.Fingerprint.Length = 4
	cfg.Packages = []PackageConfig{{Dir: "a"}, {Dir: "a"}, {}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, fragment := range []string{
		"registry.kind",
		"branches.source",
		"retention.max_versions",
		"fingerprint length 4",
		"listed twice",
		"packages[2].dir is required",
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error missing %q:\n%v", fragment, err)
		}
	}
}

func TestValidate_SourceRequirements(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "branches.owner") {
		t.Errorf("github source without repo: err = %v", err)
	}

	cfg.Branches.Source = BranchesStatic
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "branches.names") {
		t.Errorf("static source without names: err = %v", err)
	}

	cfg.Branches.Source = BranchesGit
	if err := cfg.Validate(); err != nil {
		t.Errorf("git source: %v", err)
	}

	cfg.Retention.Enabled = false
	cfg.Retention.MaxVersions = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled retention should not validate max_versions: %v", err)
	}
	if policy := cfg.RetentionPolicy(); policy.MaxVersions != 0 {
		t.Errorf("disabled policy = %+v", policy)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFile(writeConfig(t, "registry: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
