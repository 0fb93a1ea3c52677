// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package retention

import (
	"fmt"
	"testing"
	"time"

	"github.com/bureau-foundation/stamp/lib/registry"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(days float64) time.Time {
	return now.Add(-time.Duration(days * 24 * float64(time.Hour)))
}

func record(version string, age float64, tags ...string) registry.PublishedVersion {
	if tags == nil {
		tags = []string{}
	}
	return registry.PublishedVersion{Version: version, Tags: tags, PublishedAt: daysAgo(age)}
}

// history builds count versions named v0..v(count-1), all older than
// the default age floor and tagged for a deleted branch. v0 is oldest.
func history(count int) []registry.PublishedVersion {
	records := make([]registry.PublishedVersion, count)
	for i := range count {
		records[i] = record(fmt.Sprintf("1.0.0-preview.%012d", i), float64(100+count-i), "branch-gone")
	}
	return records
}

func policy(maxVersions, minAgeDays int) Policy {
	return Policy{MaxVersions: maxVersions, MinAgeDays: minAgeDays}
}

func versions(decision Decision) []string {
	var names []string
	for _, candidate := range decision.Delete {
		names = append(names, candidate.Version)
	}
	return names
}

func TestPlanBelowCeiling(t *testing.T) {
	decision := Plan(history(4), NewBranchSet("main"), policy(5, 0), now)
	if !decision.Empty() {
		t.Fatalf("below ceiling: delete = %v", versions(decision))
	}
	if decision.Needed != 0 {
		t.Errorf("Needed = %d, want 0", decision.Needed)
	}
	if decision.Total != 4 {
		t.Errorf("Total = %d, want 4", decision.Total)
	}
}

func TestPlanAtCeilingDeletesOne(t *testing.T) {
	records := history(5)
	decision := Plan(records, NewBranchSet("main"), policy(5, 0), now)
	if got := versions(decision); len(got) != 1 || got[0] != records[0].Version {
		t.Fatalf("delete = %v, want [%s]", got, records[0].Version)
	}
}

func TestPlanQuotaOldestFirst(t *testing.T) {
	// 8 versions over a ceiling of 5: bring the count to 4.
	records := history(8)
	decision := Plan(records, NewBranchSet("main"), policy(5, 0), now)
	if decision.Needed != 4 {
		t.Fatalf("Needed = %d, want 4", decision.Needed)
	}
	got := versions(decision)
	if len(got) != 4 {
		t.Fatalf("delete = %v, want 4 versions", got)
	}
	for i := range 4 {
		if got[i] != records[i].Version {
			t.Errorf("delete[%d] = %s, want %s", i, got[i], records[i].Version)
		}
	}
	for i := 1; i < len(decision.Delete); i++ {
		if decision.Delete[i].AgeDays > decision.Delete[i-1].AgeDays {
			t.Errorf("delete not ordered oldest first at %d", i)
		}
	}
}

func TestPlanAgeFloor(t *testing.T) {
	records := []registry.PublishedVersion{
		record("a", 5, "branch-gone"),
		record("b", 29.99, "branch-gone"),
		record("c", 30, "branch-gone"),
		record("d", 45, "branch-gone"),
	}
	decision := Plan(records, NewBranchSet("main"), policy(2, 30), now)
	got := versions(decision)
	if len(got) != 2 || got[0] != "d" || got[1] != "c" {
		t.Fatalf("delete = %v, want [d c]", got)
	}
	if decision.Needed != 3 || decision.Eligible != 2 {
		t.Errorf("Needed=%d Eligible=%d, want 3 and 2", decision.Needed, decision.Eligible)
	}
}

func TestPlanNeverDeletesYoungToMeetQuota(t *testing.T) {
	records := make([]registry.PublishedVersion, 10)
	for i := range records {
		records[i] = record(fmt.Sprintf("v%d", i), float64(i), "branch-gone")
	}
	decision := Plan(records, NewBranchSet("main"), policy(3, 30), now)
	if !decision.Empty() {
		t.Fatalf("young versions deleted: %v", versions(decision))
	}
}

func TestPlanLiveBranchProtects(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		live BranchSet
		want bool // candidate for deletion
	}{
		{"literal live", []string{"branch-feature-login"}, NewBranchSet("feature-login"), false},
		{"slashed live", []string{"branch-feature-login"}, NewBranchSet("feature/login"), false},
		{"both gone", []string{"branch-feature-login"}, NewBranchSet("main"), true},
		{"one of two live", []string{"branch-gone", "branch-main"}, NewBranchSet("main"), false},
		{"orphaned", []string{}, NewBranchSet("main"), true},
		{"non-branch tag only", []string{"latest"}, NewBranchSet("main"), true},
		{"underscore kept literal", []string{"branch-fix_bug"}, NewBranchSet("fix_bug"), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			records := []registry.PublishedVersion{record("old", 90, test.tags...)}
			decision := Plan(records, test.live, policy(1, 30), now)
			if got := !decision.Empty(); got != test.want {
				t.Errorf("candidate = %v, want %v", got, test.want)
			}
		})
	}
}

func TestPlanSlashRestorationReplacesAllDashes(t *testing.T) {
	// feature/a-b sanitizes to feature-a-b, which restores to feature/a/b.
	// Neither spelling matches, so the version is a candidate. This is
	// the documented approximation; the age floor covers it.
	records := []registry.PublishedVersion{record("old", 90, "branch-feature-a-b")}
	decision := Plan(records, NewBranchSet("feature/a-b"), policy(1, 30), now)
	if decision.Empty() {
		t.Fatal("expected candidate when neither spelling matches")
	}
}

func TestPlanEmptyLiveSetDeletesNothing(t *testing.T) {
	for _, live := range []BranchSet{nil, NewBranchSet()} {
		decision := Plan(history(10), live, policy(5, 0), now)
		if !decision.Empty() {
			t.Errorf("live=%v: delete = %v", live, versions(decision))
		}
		if decision.Needed != 6 {
			t.Errorf("Needed = %d, want 6", decision.Needed)
		}
	}
}

func TestPlanKeepVersions(t *testing.T) {
	records := history(6)
	p := policy(5, 0)
	p.Keep = []string{records[0].Version}
	decision := Plan(records, NewBranchSet("main"), p, now)
	got := versions(decision)
	if len(got) != 2 || got[0] != records[1].Version || got[1] != records[2].Version {
		t.Fatalf("delete = %v, want [%s %s]", got, records[1].Version, records[2].Version)
	}
}

func TestPlanDisabled(t *testing.T) {
	if decision := Plan(history(10), NewBranchSet("main"), policy(0, 0), now); !decision.Empty() {
		t.Fatalf("MaxVersions 0 deleted %v", versions(decision))
	}
}

func TestPlanTieBreakOnVersion(t *testing.T) {
	records := []registry.PublishedVersion{
		record("b", 50, "branch-gone"),
		record("a", 50, "branch-gone"),
		record("c", 50, "branch-gone"),
	}
	decision := Plan(records, NewBranchSet("main"), policy(3, 0), now)
	if got := versions(decision); len(got) != 1 || got[0] != "a" {
		t.Fatalf("delete = %v, want [a]", got)
	}
}

func TestPlanFutureTimestampIsYoung(t *testing.T) {
	records := []registry.PublishedVersion{record("skewed", -2, "branch-gone")}
	if decision := Plan(records, NewBranchSet("main"), policy(1, 0), now); !decision.Empty() {
		t.Fatalf("future-dated version deleted: %v", versions(decision))
	}
}

func TestPlanIsPure(t *testing.T) {
	records := history(8)
	live := NewBranchSet("main")
	first := Plan(records, live, policy(5, 0), now)
	second := Plan(records, live, policy(5, 0), now)
	if fmt.Sprint(versions(first)) != fmt.Sprint(versions(second)) {
		t.Fatalf("non-deterministic: %v vs %v", versions(first), versions(second))
	}
	if records[0].Version != "1.0.0-preview.000000000000" {
		t.Fatal("history mutated")
	}
}

func TestAgeDays(t *testing.T) {
	if got := AgeDays(daysAgo(1.5), now); got < 1.499 || got > 1.501 {
		t.Errorf("AgeDays = %f, want 1.5", got)
	}
}
