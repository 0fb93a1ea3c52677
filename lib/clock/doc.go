// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock instead of calling time.Now or
// time.After directly. In production, Real() provides the standard
// library behavior. In tests, Fake() provides a clock that stands still
// until Advance or Set is called:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store := dirstore.New(root, dirstore.Options{Clock: c})
//	// publish v1 ...
//	c.Advance(45 * 24 * time.Hour)
//	// v1 is now 45 days old for retention purposes
//
// Waiters registered with After fire when the fake time passes their
// deadline. Use PendingCount to synchronize a test with a goroutine
// that is about to block on After.
package clock
