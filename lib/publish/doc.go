// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish makes sure a resolved preview version exists in the
// registry and carries the current branch's tag.
//
// The idempotence primitive is "publish, and treat conflict as
// success". Two CI jobs on different branches that build identical
// output resolve to the same version; whichever loses the race to
// publish sees registry.ErrConflict and attaches its tag to the
// winner's version instead. No lock is taken across processes.
//
// The package manifest is rewritten to carry the preview version only
// for the duration of the publish call and restored on every return
// path.
package publish
