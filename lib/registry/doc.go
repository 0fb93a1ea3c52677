// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry defines the contract stamp needs from a package
// registry and the error vocabulary shared by every adapter.
//
// A registry stores immutable versions of named packages. Each version
// carries a publish timestamp and may be referenced by any number of
// tags; each tag references exactly one version. Publishing a version
// that already exists fails with [ErrConflict], which is the primitive
// that lets concurrent CI runs converge on one version without a lock.
//
// Adapters:
//   - lib/registry/npm: the npm registry HTTP protocol
//   - lib/registry/dirstore: a directory on a local or shared filesystem
package registry
