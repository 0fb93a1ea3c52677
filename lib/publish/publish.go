// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bureau-foundation/stamp/lib/manifest"
	"github.com/bureau-foundation/stamp/lib/preview"
	"github.com/bureau-foundation/stamp/lib/registry"
)

// Target identifies the package being published.
type Target struct {
	// Name is the registry-qualified package name.
	Name string

	// Dir is the package directory handed to the registry.
	Dir string

	// Manifest is the path of the manifest whose version field is
	// overridden during publish. It normally lives inside Dir.
	Manifest string
}

// Outcome reports what EnsurePublished did.
type Outcome struct {
	// Created is true only when this call published the version.
	Created bool

	// Conflict is true when a concurrent publisher created the version
	// between the existence check and our publish.
	Conflict bool
}

// Coordinator runs the existence check, publish, and tag steps against
// one registry.
type Coordinator struct {
	registry registry.Registry
	logger   *slog.Logger
}

// NewCoordinator returns a Coordinator. A nil logger uses slog.Default().
func NewCoordinator(reg registry.Registry, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{registry: reg, logger: logger}
}

// EnsurePublished makes resolved.Version exist for target.Name with
// resolved.Tag attached.
//
// If the version already exists, the tag is attached and Created is
// false. Otherwise the manifest is overridden with the version, the
// package is published with the tag, and the manifest is restored.
// A conflict from publish is handled like "already existed".
func (c *Coordinator) EnsurePublished(ctx context.Context, target Target, resolved preview.Resolved) (Outcome, error) {
	if target.Name == "" {
		return Outcome{}, errors.New("publish: package name is required")
	}
	logger := c.logger.With("package", target.Name, "version", resolved.Version, "tag", resolved.Tag)

	exists, err := c.registry.VersionExists(ctx, target.Name, resolved.Version)
	if err != nil {
		return Outcome{}, err
	}
	if exists {
		logger.Info("version already published, attaching tag")
		if err := c.registry.AddTag(ctx, target.Name, resolved.Version, resolved.Tag); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, nil
	}

	err = c.publishWithOverride(ctx, target, resolved, logger)
	if registry.IsConflict(err) {
		logger.Info("version was published concurrently, attaching tag")
		if err := c.registry.AddTag(ctx, target.Name, resolved.Version, resolved.Tag); err != nil {
			return Outcome{}, err
		}
		return Outcome{Conflict: true}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	logger.Info("published new version")
	return Outcome{Created: true}, nil
}

// publishWithOverride rewrites the manifest's version for the duration
// of the registry call. Restore failures are logged, not returned: a
// dirty manifest is fixed by the next run, and the publish outcome is
// what the caller must act on.
func (c *Coordinator) publishWithOverride(ctx context.Context, target Target, resolved preview.Resolved, logger *slog.Logger) error {
	packageManifest, err := manifest.Load(target.Manifest)
	if err != nil {
		return err
	}
	restore, err := packageManifest.Override(resolved.Version)
	if err != nil {
		return err
	}
	defer func() {
		if err := restore(); err != nil {
			logger.Error("manifest restore failed", "manifest", target.Manifest, "error", err)
		}
	}()

	relative, err := filepath.Rel(target.Dir, target.Manifest)
	if err != nil {
		return fmt.Errorf("publish: manifest %s is not under %s: %w", target.Manifest, target.Dir, err)
	}

	return c.registry.Publish(ctx, registry.PublishRequest{
		Name:     target.Name,
		Version:  resolved.Version,
		Tag:      resolved.Tag,
		Dir:      target.Dir,
		Manifest: filepath.ToSlash(relative),
	})
}
