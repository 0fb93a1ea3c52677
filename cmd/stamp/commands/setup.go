// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/bureau-foundation/stamp/cmd/stamp/cli"
	"github.com/bureau-foundation/stamp/lib/branch"
	"github.com/bureau-foundation/stamp/lib/config"
	"github.com/bureau-foundation/stamp/lib/fingerprint"
	"github.com/bureau-foundation/stamp/lib/git"
	"github.com/bureau-foundation/stamp/lib/github"
	"github.com/bureau-foundation/stamp/lib/registry"
	"github.com/bureau-foundation/stamp/lib/registry/dirstore"
	"github.com/bureau-foundation/stamp/lib/registry/npm"
	"github.com/bureau-foundation/stamp/lib/runner"
)

// configParams is embedded by every command that reads stamp.yaml.
type configParams struct {
	Config  string `json:"config" flag:"config,c" desc:"path to stamp.yaml (default $STAMP_CONFIG)"`
	Verbose bool   `json:"-" flag:"verbose,v" desc:"enable debug logging"`
}

// load reads and validates the configuration.
func (p *configParams) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if p.Config != "" {
		cfg, err = config.LoadFile(p.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &cli.ToolError{Category: cli.CategoryValidation, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration %s:\n%w", cfg.Path(), err)
	}
	return cfg, nil
}

// getenv is os.Getenv; tests replace it.
var getenv = os.Getenv

func newRegistry(cfg *config.Config, logger *slog.Logger) (registry.Registry, error) {
	switch cfg.Registry.Kind {
	case config.RegistryNPM:
		token := ""
		if cfg.Registry.TokenEnv != "" {
			token = getenv(cfg.Registry.TokenEnv)
		}
		if token == "" {
			logger.Warn("no registry token set, publishing will likely be rejected", "token_env", cfg.Registry.TokenEnv)
		}
		client, err := npm.NewClient(npm.Config{
			BaseURL: cfg.Registry.URL,
			Token:   token,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.RegistryDirectory:
		store, err := dirstore.New(cfg.RegistryDir(), dirstore.Options{
			Compression: cfg.Registry.Compression,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown registry kind %q", cfg.Registry.Kind)
	}
}

func newOracle(cfg *config.Config, logger *slog.Logger) (branch.Oracle, error) {
	switch cfg.Branches.Source {
	case config.BranchesGitHub:
		token := ""
		if cfg.Branches.TokenEnv != "" {
			token = getenv(cfg.Branches.TokenEnv)
		}
		client, err := github.NewClient(github.Config{
			BaseURL: cfg.Branches.APIURL,
			Token:   token,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return branch.GitHub{Client: client, Owner: cfg.Branches.Owner, Repo: cfg.Branches.Repo}, nil
	case config.BranchesGit:
		return branch.Git{Repository: git.NewRepository(cfg.GitDir()), Remote: cfg.Branches.Remote}, nil
	case config.BranchesStatic:
		return branch.Static(cfg.Branches.Names), nil
	default:
		return nil, fmt.Errorf("unknown branch source %q", cfg.Branches.Source)
	}
}

// newHasher builds the configured fingerprint hasher.
func newHasher(cfg *config.Config) (*fingerprint.Hasher, error) {
	return fingerprint.New(cfg.FingerprintOptions())
}

// packages converts the configured packages, keeping only those whose
// dir is in only (all of them when only is empty).
func packages(cfg *config.Config, only []string) ([]runner.Package, error) {
	var result []runner.Package
	for _, pkg := range cfg.Packages {
		if len(only) > 0 && !slices.Contains(only, pkg.Dir) {
			continue
		}
		result = append(result, runner.Package{
			Name:     pkg.Name,
			Dir:      cfg.PackageDir(pkg),
			Manifest: cfg.ManifestPath(pkg),
			Output:   cfg.OutputDir(pkg),
		})
	}
	if len(result) == 0 {
		if len(only) > 0 {
			return nil, cli.Validation("no configured package matches %v", only)
		}
		return nil, cli.Validation("no packages configured in %s", cfg.Path())
	}
	return result, nil
}

// detectBranch resolves the branch being built, falling back to the
// configured checkout.
func detectBranch(ctx context.Context, cfg *config.Config, explicit string) (branch.Detection, error) {
	var repository *git.Repository
	if cfg != nil {
		repository = git.NewRepository(cfg.GitDir())
	}
	detection, err := branch.Detect(ctx, explicit, getenv, repository)
	if err != nil {
		return branch.Detection{}, &cli.ToolError{Category: cli.CategoryValidation, Err: err}
	}
	return detection, nil
}
