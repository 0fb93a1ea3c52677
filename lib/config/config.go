// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/stamp/lib/archive"
	"github.com/bureau-foundation/stamp/lib/fingerprint"
	"github.com/bureau-foundation/stamp/lib/retention"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "STAMP_CONFIG"

// Registry kinds.
const (
	RegistryNPM       = "npm"
	RegistryDirectory = "directory"
)

// Branch sources.
const (
	BranchesGitHub = "github"
	BranchesGit    = "git"
	BranchesStatic = "static"
)

// Config is the root configuration.
type Config struct {
	Registry    RegistryConfig    `yaml:"registry"`
	Branches    BranchesConfig    `yaml:"branches"`
	Retention   RetentionConfig   `yaml:"retention"`
	Fingerprint FingerprintConfig `yaml:"fingerprint"`
	Packages    []PackageConfig   `yaml:"packages"`

	// path is the file the config was loaded from. Relative package
	// paths resolve against its directory.
	path string
}

// RegistryConfig selects and configures the artifact store.
type RegistryConfig struct {
	// Kind is "npm" or "directory".
	Kind string `yaml:"kind"`

	// URL is the npm registry root.
	URL string `yaml:"url"`

	// TokenEnv names the environment variable holding the npm token.
	TokenEnv string `yaml:"token_env"`

	// Dir is the root of a directory registry.
	Dir string `yaml:"dir"`

	// Compression applies to directory registry archives: zstd, lz4,
	// gzip, or none.
	Compression string `yaml:"compression"`
}

// BranchesConfig selects the branch-liveness source.
type BranchesConfig struct {
	// Source is "github", "git", or "static".
	Source string `yaml:"source"`

	Owner    string `yaml:"owner"`
	Repo     string `yaml:"repo"`
	TokenEnv string `yaml:"token_env"`
	APIURL   string `yaml:"api_url"`

	// GitDir is the checkout used for ls-remote and HEAD detection.
	GitDir string `yaml:"git_dir"`
	Remote string `yaml:"remote"`

	// Names is the branch list for the static source.
	Names []string `yaml:"names"`
}

// RetentionConfig carries the cleanup policy.
type RetentionConfig struct {
	Enabled     bool `yaml:"enabled"`
	MaxVersions int  `yaml:"max_versions"`
	MinAgeDays  int  `yaml:"min_age_days"`
}

// FingerprintConfig selects the content hash.
type FingerprintConfig struct {
	Algorithm string `yaml:"algorithm"`
	Length    int    `yaml:"length"`
}

// PackageConfig locates one publishable package.
type PackageConfig struct {
	// Dir is the package root handed to the registry.
	Dir string `yaml:"dir"`

	// Name overrides the manifest's name field.
	Name string `yaml:"name"`

	// Manifest is relative to Dir. Empty means the first of
	// package.json, deno.json, deno.jsonc present in Dir.
	Manifest string `yaml:"manifest"`

	// Output is the build output directory whose content determines
	// the fingerprint, relative to Dir. Defaults to "dist".
	Output string `yaml:"output"`
}

// Default returns the built-in defaults: npm registry, GitHub branch
// listing, retention on at 150 versions and 30 days, 12-character
// SHA-256 fingerprints.
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{
			Kind:        RegistryNPM,
			URL:         "https://registry.npmjs.org",
			TokenEnv:    "NPM_TOKEN",
			Compression: "zstd",
		},
		Branches: BranchesConfig{
			Source:   BranchesGitHub,
			TokenEnv: "GITHUB_TOKEN",
			GitDir:   ".",
			Remote:   "origin",
		},
		Retention: RetentionConfig{
			Enabled:     true,
			MaxVersions: retention.DefaultMaxVersions,
			MinAgeDays:  retention.DefaultMinAgeDays,
		},
		Fingerprint: FingerprintConfig{
			Algorithm: string(fingerprint.SHA256),
			Length:    fingerprint.DefaultLength,
		},
	}
}

// Load loads the file named by STAMP_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your stamp.yaml, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads path over Default, expands variables, and fills CI
// defaults. It does not validate; call Validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.path = path
	cfg.expandVariables()
	cfg.applyEnvironmentDefaults(os.Getenv)
	return cfg, nil
}

// Path returns the file the configuration was loaded from, or "".
func (c *Config) Path() string { return c.path }

// BaseDir is the directory relative package paths resolve against: the
// config file's directory, or "." for a default config.
func (c *Config) BaseDir() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// PackageDir resolves a package's Dir against BaseDir.
func (c *Config) PackageDir(pkg PackageConfig) string {
	if filepath.IsAbs(pkg.Dir) {
		return pkg.Dir
	}
	return filepath.Join(c.BaseDir(), pkg.Dir)
}

// OutputDir resolves a package's Output directory.
func (c *Config) OutputDir(pkg PackageConfig) string {
	output := pkg.Output
	if output == "" {
		output = "dist"
	}
	if filepath.IsAbs(output) {
		return output
	}
	return filepath.Join(c.PackageDir(pkg), output)
}

// GitDir resolves Branches.GitDir against BaseDir.
func (c *Config) GitDir() string {
	if filepath.IsAbs(c.Branches.GitDir) {
		return c.Branches.GitDir
	}
	return filepath.Join(c.BaseDir(), c.Branches.GitDir)
}

// RegistryDir resolves Registry.Dir against BaseDir.
func (c *Config) RegistryDir() string {
	if filepath.IsAbs(c.Registry.Dir) {
		return c.Registry.Dir
	}
	return filepath.Join(c.BaseDir(), c.Registry.Dir)
}

// RetentionPolicy returns the retention policy, or a disabled policy.
func (c *Config) RetentionPolicy() retention.Policy {
	if !c.Retention.Enabled {
		return retention.Policy{}
	}
	return retention.Policy{
		MaxVersions: c.Retention.MaxVersions,
		MinAgeDays:  c.Retention.MinAgeDays,
	}
}

// FingerprintOptions converts the fingerprint section.
func (c *Config) FingerprintOptions() fingerprint.Options {
	return fingerprint.Options{
		Algorithm: fingerprint.Algorithm(c.Fingerprint.Algorithm),
		Length:    c.Fingerprint.Length,
	}
}

func (c *Config) expandVariables() {
	fields := []*string{
		&c.Registry.URL,
		&c.Registry.Dir,
		&c.Branches.Owner,
		&c.Branches.Repo,
		&c.Branches.APIURL,
		&c.Branches.GitDir,
		&c.Branches.Remote,
	}
	for _, field := range fields {
		*field = expandVars(*field)
	}
	for i := range c.Packages {
		c.Packages[i].Dir = expandVars(c.Packages[i].Dir)
		c.Packages[i].Output = expandVars(c.Packages[i].Output)
	}
}

// applyEnvironmentDefaults fills GitHub coordinates from the Actions
// environment when the file leaves them empty.
func (c *Config) applyEnvironmentDefaults(getenv func(string) string) {
	if c.Branches.Source != BranchesGitHub {
		return
	}
	if c.Branches.Owner == "" && c.Branches.Repo == "" {
		if owner, repo, ok := strings.Cut(getenv("GITHUB_REPOSITORY"), "/"); ok {
			c.Branches.Owner = owner
			c.Branches.Repo = repo
		}
	}
	if c.Branches.APIURL == "" {
		c.Branches.APIURL = getenv("GITHUB_API_URL")
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Registry.Kind {
	case RegistryNPM:
		if c.Registry.URL == "" {
			errs = append(errs, errors.New("registry.url is required for the npm registry"))
		}
	case RegistryDirectory:
		if c.Registry.Dir == "" {
			errs = append(errs, errors.New("registry.dir is required for the directory registry"))
		}
		if _, err := archive.ParseCompression(c.Registry.Compression); err != nil {
			errs = append(errs, fmt.Errorf("registry.compression: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("registry.kind must be one of: %v", []string{RegistryNPM, RegistryDirectory}))
	}

	switch c.Branches.Source {
	case BranchesGitHub:
		if c.Branches.Owner == "" || c.Branches.Repo == "" {
			errs = append(errs, errors.New("branches.owner and branches.repo are required for the github source"))
		}
	case BranchesGit:
	case BranchesStatic:
		if len(c.Branches.Names) == 0 {
			errs = append(errs, errors.New("branches.names must list at least one branch for the static source"))
		}
	default:
		errs = append(errs, fmt.Errorf("branches.source must be one of: %v", []string{BranchesGitHub, BranchesGit, BranchesStatic}))
	}

	if c.Retention.Enabled {
		if c.Retention.MaxVersions < 1 {
			errs = append(errs, fmt.Errorf("retention.max_versions must be at least 1 (got %d)", c.Retention.MaxVersions))
		}
		if c.Retention.MinAgeDays < 0 {
			errs = append(errs, fmt.Errorf("retention.min_age_days must not be negative (got %d)", c.Retention.MinAgeDays))
		}
	}

	if _, err := fingerprint.New(c.FingerprintOptions()); err != nil {
		errs = append(errs, fmt.Errorf("fingerprint: %w", err))
	}

	var seen []string
	for i, pkg := range c.Packages {
		if pkg.Dir == "" {
			errs = append(errs, fmt.Errorf("packages[%d].dir is required", i))
			continue
		}
		if slices.Contains(seen, pkg.Dir) {
			errs = append(errs, fmt.Errorf("packages[%d].dir %q is listed twice", i, pkg.Dir))
		}
		seen = append(seen, pkg.Dir)
	}

	return errors.Join(errs...)
}

// ManifestPath resolves a package's Manifest against its directory.
// An empty Manifest stays empty so the caller searches the directory.
func (c *Config) ManifestPath(pkg PackageConfig) string {
	if pkg.Manifest == "" || filepath.IsAbs(pkg.Manifest) {
		return pkg.Manifest
	}
	return filepath.Join(c.PackageDir(pkg), pkg.Manifest)
}
