// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dirstore is a registry backed by a local or shared directory.
// It serves air-gapped CI, integration tests, and dry runs against a
// scratch copy of production state.
//
// On-disk layout:
//
//	<root>/<escaped name>/.lock
//	<root>/<escaped name>/tags.cbor
//	<root>/<escaped name>/versions/<escaped version>.cbor
//	<root>/<escaped name>/versions/<escaped version><ext>
//
// Each .cbor version record holds the publish timestamp and the
// archive's digest. The archive beside it is a reproducible tar of the
// package directory, compressed per [Options.Compression]. tags.cbor
// maps tag names to versions.
//
// Mutations take an exclusive flock on the package's .lock file, so
// concurrent stamp processes sharing one directory (including over
// NFS with lock support) serialize per package. Version records are
// created with O_EXCL: a second publisher of the same version gets
// [registry.ErrConflict]. Files are replaced through temp+rename, so
// readers see either the old or the new content.
package dirstore
