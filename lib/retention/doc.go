// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package retention decides which previously published preview versions
// of a package are safe to delete.
//
// [Plan] is pure: it takes the package's version history, the set of
// branches that currently exist, a [Policy], and the current time, and
// returns a [Decision]. It never fails and performs no I/O. Listing the
// history, listing branches, and deleting versions are the caller's
// job.
//
// The policy, in order:
//
//  1. Below the ceiling (fewer than MaxVersions versions) nothing is
//     deleted, whatever the ages or branch states.
//  2. Versions younger than MinAgeDays are never deleted. The age floor
//     is the safety margin against races between the read (list
//     versions and branches) and the act (delete).
//  3. A version is a candidate only if every branch tag on it refers to
//     a branch that no longer exists. A version with no branch tags is
//     orphaned and qualifies. Each tag is checked against two spellings
//     of the branch: the literal tag remainder and the remainder with
//     "-" restored to "/". Either being live protects the version.
//     Restoration replaces every "-", so a branch that mixes both
//     separators (feature/my-thing, tagged branch-feature-my-thing)
//     matches neither spelling. Its versions look branch-dead and are
//     protected only by the age floor.
//  4. Candidates are deleted oldest first, and only as many as needed
//     to bring the package one below the ceiling. Ineligible versions
//     are never deleted to meet the quota.
//
// An empty live-branch set means the branch listing is unknown; the
// decision is then empty. Every repository has at least one branch, so
// an empty set can only come from a degraded listing, and the safe
// direction is to delete nothing.
package retention
