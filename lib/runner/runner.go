// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/stamp/lib/branch"
	"github.com/bureau-foundation/stamp/lib/clock"
	"github.com/bureau-foundation/stamp/lib/fingerprint"
	"github.com/bureau-foundation/stamp/lib/manifest"
	"github.com/bureau-foundation/stamp/lib/preview"
	"github.com/bureau-foundation/stamp/lib/publish"
	"github.com/bureau-foundation/stamp/lib/registry"
	"github.com/bureau-foundation/stamp/lib/retention"
)

// Package is one publishable unit.
type Package struct {
	// Name overrides the manifest's "name" field when set.
	Name string

	// Dir is the package directory handed to the registry.
	Dir string

	// Manifest is the manifest path. Empty means look in Dir for one
	// of [manifest.Names].
	Manifest string

	// Output is the build output directory that is fingerprinted.
	Output string
}

// Config holds the collaborators for a [Runner].
type Config struct {
	// Registry is required.
	Registry registry.Registry

	// Oracle lists live branches for cleanup. Nil disables cleanup.
	Oracle branch.Oracle

	// Hasher defaults to [fingerprint.Default].
	Hasher *fingerprint.Hasher

	// Policy is the retention policy. A zero MaxVersions disables
	// cleanup.
	Policy retention.Policy

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// DryRun resolves and plans without mutating the registry or any
	// manifest.
	DryRun bool

	// NoCleanup skips retention entirely.
	NoCleanup bool
}

// Runner processes packages against one registry.
type Runner struct {
	registry    registry.Registry
	oracle      branch.Oracle
	hasher      *fingerprint.Hasher
	policy      retention.Policy
	clock       clock.Clock
	logger      *slog.Logger
	coordinator *publish.Coordinator
	dryRun      bool
	noCleanup   bool
}

// New returns a Runner for config.
func New(config Config) (*Runner, error) {
	if config.Registry == nil {
		return nil, errors.New("runner: registry is required")
	}
	if config.Hasher == nil {
		config.Hasher = fingerprint.Default()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Runner{
		registry:    config.Registry,
		oracle:      config.Oracle,
		hasher:      config.Hasher,
		policy:      config.Policy,
		clock:       config.Clock,
		logger:      config.Logger,
		coordinator: publish.NewCoordinator(config.Registry, config.Logger),
		dryRun:      config.DryRun,
		noCleanup:   config.NoCleanup,
	}, nil
}

// Prepared is a package whose manifest has been read and whose version
// has been resolved. Nothing has touched the registry yet.
type Prepared struct {
	Package  Package
	Name     string
	Manifest string
	Resolved preview.Resolved
}

// LoadManifest finds and parses the package's manifest. A configured
// Name replaces the manifest's own; a package with neither is a
// *preview.ValidationError.
func (p Package) LoadManifest() (*manifest.Manifest, error) {
	path := p.Manifest
	if path == "" {
		found, err := manifest.Find(p.Dir)
		if err != nil {
			return nil, err
		}
		path = found
	}
	packageManifest, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	if p.Name != "" {
		packageManifest.Name = p.Name
	}
	if packageManifest.Name == "" {
		return nil, &preview.ValidationError{Field: "name", Reason: fmt.Sprintf("%s has no name and none is configured", path)}
	}
	return packageManifest, nil
}

// Prepare loads the package's manifest, fingerprints its output with
// hasher, and resolves the preview version for branchName.
func Prepare(hasher *fingerprint.Hasher, pkg Package, branchName string) (Prepared, error) {
	packageManifest, err := pkg.LoadManifest()
	if err != nil {
		return Prepared{}, err
	}

	fp, err := hasher.Directory(pkg.Output)
	if err != nil {
		return Prepared{}, err
	}

	resolved, err := preview.Resolve(packageManifest.Version, fp.String(), branchName)
	if err != nil {
		return Prepared{}, err
	}

	return Prepared{Package: pkg, Name: packageManifest.Name, Manifest: packageManifest.Path, Resolved: resolved}, nil
}

// Plan fetches the history of name and the live branch set and returns
// the retention decision. Unlike cleanup during [Runner.Run], failures
// are returned to the caller.
func (r *Runner) Plan(ctx context.Context, name string, keep ...string) (retention.Decision, error) {
	if r.oracle == nil {
		return retention.Decision{}, errors.New("no branch source configured")
	}
	history, err := r.registry.ListVersions(ctx, name)
	if err != nil {
		return retention.Decision{}, fmt.Errorf("listing versions of %s: %w", name, err)
	}
	policy := r.policy
	policy.Keep = append(append([]string(nil), policy.Keep...), keep...)

	// Under the ceiling the branch set is irrelevant; skip the API call.
	if len(history) < policy.MaxVersions {
		return retention.Plan(history, nil, policy, r.clock.Now()), nil
	}
	live, err := r.oracle.Branches(ctx)
	if err != nil {
		return retention.Decision{}, fmt.Errorf("listing branches: %w", err)
	}
	return retention.Plan(history, live, policy, r.clock.Now()), nil
}

// Run processes packages for branchName. The returned error is non-nil
// only when ctx is cancelled; per-package failures are recorded in the
// report.
func (r *Runner) Run(ctx context.Context, branchName string, packages []Package) (*Report, error) {
	report := &Report{Branch: branchName, DryRun: r.dryRun, Results: make([]Result, 0, len(packages))}
	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := r.process(ctx, pkg, branchName)
		report.Results = append(report.Results, result)
	}
	return report, nil
}

func (r *Runner) process(ctx context.Context, pkg Package, branchName string) Result {
	result := Result{Name: pkg.Name, Dir: pkg.Dir}

	prepared, err := Prepare(r.hasher, pkg, branchName)
	if err != nil {
		r.logger.Error("package preparation failed", "dir", pkg.Dir, "error", err)
		return result.failed(err)
	}
	result.Name = prepared.Name
	result.Version = prepared.Resolved.Version
	result.Tag = prepared.Resolved.Tag
	result.Fingerprint = prepared.Resolved.Fingerprint

	logger := r.logger.With("package", prepared.Name, "version", prepared.Resolved.Version, "tag", prepared.Resolved.Tag)
	result.Cleanup = r.cleanup(ctx, prepared, logger)

	if r.dryRun {
		exists, err := r.registry.VersionExists(ctx, prepared.Name, prepared.Resolved.Version)
		if err != nil {
			logger.Error("version check failed", "error", err)
			return result.failed(err)
		}
		result.IsNew = !exists
		logger.Info("dry run, not publishing", "exists", exists)
		return result
	}

	outcome, err := r.coordinator.EnsurePublished(ctx, publish.Target{
		Name:     prepared.Name,
		Dir:      pkg.Dir,
		Manifest: prepared.Manifest,
	}, prepared.Resolved)
	if err != nil {
		logger.Error("publish failed", "error", err)
		return result.failed(err)
	}
	result.IsNew = outcome.Created
	result.Conflict = outcome.Conflict
	return result
}

// cleanup plans and applies retention for one package. It never fails:
// anything that goes wrong is logged and recorded in the returned
// summary.
func (r *Runner) cleanup(ctx context.Context, prepared Prepared, logger *slog.Logger) *Cleanup {
	if r.noCleanup || r.oracle == nil || r.policy.MaxVersions <= 0 {
		return nil
	}

	decision, err := r.Plan(ctx, prepared.Name, prepared.Resolved.Version)
	if err != nil {
		logger.Warn("skipping cleanup", "error", err)
		return &Cleanup{Skipped: err.Error()}
	}

	summary := &Cleanup{
		Total:    decision.Total,
		Needed:   decision.Needed,
		Eligible: decision.Eligible,
		Planned:  decision.Delete,
	}
	if decision.Needed > decision.Eligible {
		logger.Warn("not enough eligible versions to get under the ceiling",
			"total", decision.Total, "needed", decision.Needed, "eligible", decision.Eligible)
	}
	if r.dryRun {
		return summary
	}

	for _, candidate := range decision.Delete {
		if err := ctx.Err(); err != nil {
			summary.Failed = append(summary.Failed, candidate.Version)
			continue
		}
		err := r.registry.DeleteVersion(ctx, prepared.Name, candidate.Version)
		if err != nil {
			logger.Warn("deleting old version failed",
				"deleted_version", candidate.Version, "age_days", candidate.AgeDays, "error", err)
			summary.Failed = append(summary.Failed, candidate.Version)
			continue
		}
		logger.Info("deleted old version",
			"deleted_version", candidate.Version, "age_days", candidate.AgeDays, "tags", candidate.Tags)
		summary.Deleted = append(summary.Deleted, candidate.Version)
	}
	return summary
}
