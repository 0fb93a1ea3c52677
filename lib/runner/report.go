// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import "github.com/bureau-foundation/stamp/lib/retention"

// Report is the outcome of one [Runner.Run].
type Report struct {
	Branch  string   `json:"branch"`
	DryRun  bool     `json:"dry_run,omitempty"`
	Results []Result `json:"results"`
}

// Failed returns the number of packages that did not complete.
func (r *Report) Failed() int {
	count := 0
	for _, result := range r.Results {
		if result.Error != "" {
			count++
		}
	}
	return count
}

// Created returns the number of newly published versions.
func (r *Report) Created() int {
	count := 0
	for _, result := range r.Results {
		if result.IsNew && result.Error == "" {
			count++
		}
	}
	return count
}

// Result is the outcome for one package.
type Result struct {
	Name        string `json:"name"`
	Dir         string `json:"dir"`
	Version     string `json:"version,omitempty"`
	Tag         string `json:"tag,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`

	// IsNew is true when this run published the version. In a dry run
	// it reports whether a real run would.
	IsNew bool `json:"is_new"`

	// Conflict is true when a concurrent run published the same
	// version first.
	Conflict bool `json:"conflict,omitempty"`

	Cleanup *Cleanup `json:"cleanup,omitempty"`

	// Error is empty on success.
	Error string `json:"error,omitempty"`

	err error
}

// Err returns the package's failure, or nil.
func (r Result) Err() error { return r.err }

func (r Result) failed(err error) Result {
	r.err = err
	r.Error = err.Error()
	return r
}

// Cleanup summarizes retention for one package.
type Cleanup struct {
	// Skipped holds the reason cleanup did not run, if it did not.
	Skipped string `json:"skipped,omitempty"`

	Total    int                   `json:"total"`
	Needed   int                   `json:"needed"`
	Eligible int                   `json:"eligible"`
	Planned  []retention.Candidate `json:"planned,omitempty"`
	Deleted  []string              `json:"deleted,omitempty"`
	Failed   []string              `json:"failed,omitempty"`
}
