// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fingerprint computes stable content fingerprints of build
// output directories.
//
// A fingerprint depends only on the set of (relative path, file bytes)
// pairs under the root. Traversal order, timestamps, ownership, and
// permissions never contribute. Every regular file is visited
// recursively; directories contribute nothing themselves, so an empty
// subdirectory does not change the result.
//
// # Digest stream
//
// Relative paths use forward slashes on every OS and are sorted
// lexicographically by byte value. For each file in that order the
// digest is fed:
//
//	path bytes | 0x00 | uint64 big-endian content length | content bytes
//
// The NUL terminator and length prefix make the stream unambiguous:
// {"a": "bc"} and {"ab": "c"} hash differently.
//
// # Algorithm and width
//
// SHA-256 is the default; BLAKE3 is available for very large outputs.
// The reported fingerprint is a hex prefix of the full digest, 12
// characters by default. At 48 bits, a package with 10,000 retained
// previews has a collision probability around 2e-7 (birthday bound
// n²/2^49); raise [Options.Length] for packages that publish far more.
//
// # Symlinks
//
// Symbolic links and other non-regular files are skipped: they are not
// followed and not hashed. The registry tarball packer applies the same
// rule, so the fingerprint always describes exactly what is published.
package fingerprint
