// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec centralizes stamp's CBOR configuration.
//
// The directory registry persists version records and the tag index as
// CBOR files. Encoding uses Core Deterministic Encoding (RFC 8949
// §4.2) so the same record always produces identical bytes, which keeps
// on-disk state diffable and lets concurrent writers detect no-op
// updates by comparing bytes.
//
// Consumers import only this package, never fxamacker/cbor directly.
package codec
