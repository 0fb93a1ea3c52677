// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "testing"

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "plan", 4},
		{"plan", "", 4},
		{"plan", "plan", 0},
		{"plna", "plan", 2},
		{"publsh", "publish", 1},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	var params struct {
		Branch    string `flag:"branch" desc:"branch"`
		NoCleanup bool   `flag:"no-cleanup" desc:"skip cleanup"`
	}
	flagSet := FlagsFromParams("publish", &params)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--brnch", "main"}, "--branch"},
		{[]string{"--branch", "main", "--no-clean"}, "--no-cleanup"},
		{[]string{"--completely-unrelated"}, ""},
		{[]string{"positional"}, ""},
	}
	for _, test := range tests {
		if got := suggestFlag(test.args, flagSet); got != test.want {
			t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
		}
	}
}
