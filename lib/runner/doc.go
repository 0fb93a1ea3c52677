// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package runner drives one stamp run over a list of packages.
//
// Packages are processed sequentially. For each one the runner loads
// the manifest, fingerprints the build output, resolves the preview
// version and branch tag, runs retention cleanup, and then hands the
// resolved version to the publish coordinator.
//
// Failures are isolated per package: a package whose manifest is
// malformed or whose output directory is missing is reported in its
// [Result] and the run moves on. Cleanup is best-effort. When the
// registry history or the branch listing cannot be fetched, cleanup is
// skipped with a warning and publishing proceeds. Individual deletion
// failures are logged and the remaining candidates are still deleted.
//
// The version about to be published is passed to the planner as a kept
// version, so a run never deletes the version it is publishing.
package runner
