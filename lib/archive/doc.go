// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive packs a package directory into a reproducible tar
// stream and compresses it.
//
// Packing walks the same file set the fingerprint hashes (regular
// files only, symlinks skipped) in sorted order with fixed timestamps
// and ownership, so the same directory always yields the same bytes.
package archive
