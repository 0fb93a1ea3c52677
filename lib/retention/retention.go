// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"sort"
	"strings"
	"time"

	"github.com/bureau-foundation/stamp/lib/preview"
	"github.com/bureau-foundation/stamp/lib/registry"
)

// Defaults observed in production CI.
const (
	DefaultMaxVersions = 150
	DefaultMinAgeDays  = 30
)

// Policy configures a retention decision.
type Policy struct {
	// MaxVersions is the ceiling that triggers cleanup. Values <= 0
	// disable cleanup.
	MaxVersions int

	// MinAgeDays is the minimum age before a version may be deleted.
	MinAgeDays int

	// Keep lists versions that must survive regardless of age or tags,
	// such as the version the current run is about to publish.
	Keep []string
}

// DefaultPolicy returns the production default policy.
func DefaultPolicy() Policy {
	return Policy{MaxVersions: DefaultMaxVersions, MinAgeDays: DefaultMinAgeDays}
}

// BranchSet is the set of branch names that currently exist.
type BranchSet map[string]struct{}

// NewBranchSet builds a BranchSet from names.
func NewBranchSet(names ...string) BranchSet {
	set := make(BranchSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Contains reports whether name is live.
func (s BranchSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Candidate is one version selected for deletion.
type Candidate struct {
	Version     string    `json:"version"`
	Tags        []string  `json:"tags"`
	PublishedAt time.Time `json:"published_at"`
	AgeDays     float64   `json:"age_days"`
}

// Decision is the outcome of Plan for one package.
type Decision struct {
	// Total is the number of versions in the history.
	Total int `json:"total"`

	// Needed is how many deletions would bring the package one below
	// the ceiling. Zero below the ceiling.
	Needed int `json:"needed"`

	// Eligible is how many versions passed the age floor and branch
	// liveness checks.
	Eligible int `json:"eligible"`

	// Delete holds the versions to delete, oldest first. Its length is
	// min(Needed, Eligible).
	Delete []Candidate `json:"delete"`
}

// Empty reports whether the decision deletes nothing.
func (d Decision) Empty() bool { return len(d.Delete) == 0 }

// Plan applies policy to history. See the package documentation for the
// rules.
func Plan(history []registry.PublishedVersion, live BranchSet, policy Policy, now time.Time) Decision {
	decision := Decision{Total: len(history), Delete: []Candidate{}}

	if policy.MaxVersions <= 0 || len(history) < policy.MaxVersions {
		return decision
	}
	decision.Needed = len(history) - policy.MaxVersions + 1

	if len(live) == 0 {
		return decision
	}

	keep := make(map[string]struct{}, len(policy.Keep))
	for _, version := range policy.Keep {
		keep[version] = struct{}{}
	}

	var candidates []Candidate
	for _, record := range history {
		if _, kept := keep[record.Version]; kept {
			continue
		}
		age := AgeDays(record.PublishedAt, now)
		if age < float64(policy.MinAgeDays) {
			continue
		}
		if !branchesGone(record.Tags, live) {
			continue
		}
		candidates = append(candidates, Candidate{
			Version:     record.Version,
			Tags:        record.Tags,
			PublishedAt: record.PublishedAt,
			AgeDays:     age,
		})
	}
	decision.Eligible = len(candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AgeDays != candidates[j].AgeDays {
			return candidates[i].AgeDays > candidates[j].AgeDays
		}
		return candidates[i].Version < candidates[j].Version
	})

	count := min(decision.Needed, len(candidates))
	decision.Delete = append(decision.Delete, candidates[:count]...)
	return decision
}

// AgeDays returns the fractional number of days between publishedAt
// and now. Timestamps in the future yield negative ages.
func AgeDays(publishedAt, now time.Time) float64 {
	return now.Sub(publishedAt).Hours() / 24
}

// branchesGone reports whether every branch tag in tags refers to a
// branch absent from live. Non-branch tags do not protect a version.
func branchesGone(tags []string, live BranchSet) bool {
	for _, tag := range tags {
		if !strings.HasPrefix(tag, preview.TagPrefix) {
			continue
		}
		literal, slashed, _ := preview.BranchCandidates(tag)
		if live.Contains(literal) || live.Contains(slashed) {
			return false
		}
	}
	return true
}
