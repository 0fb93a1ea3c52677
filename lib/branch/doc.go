// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package branch answers two questions: which branch is this run
// building ([Detect]), and which branches still exist ([Oracle]).
//
// Oracles never report an empty set as success. Every repository has
// at least its default branch, so zero branches means the listing is
// wrong (bad credentials seeing an empty fork, a misnamed remote) and
// retention must not act on it. Such results return [ErrNoBranches].
package branch
