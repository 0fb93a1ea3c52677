// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest reads and rewrites the version field of a package
// manifest (package.json, deno.json, or deno.jsonc).
//
// Rewrites are surgical: only the bytes of the top-level "version"
// string change. Comments, key order, indentation, and trailing commas
// in the rest of the file are preserved, so restoring the original
// after a publish leaves the working tree byte-identical.
package manifest
