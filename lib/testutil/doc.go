// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for stamp packages.
//
// [WriteTree] materializes a map of slash-separated relative paths to
// file contents under a directory, creating parent directories as
// needed. Fingerprint, manifest, registry, and runner tests build their
// fixture packages with it.
//
// [ReadFile] reads a file or fails the test.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no stamp-internal dependencies.
package testutil
