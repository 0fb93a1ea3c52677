// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package branch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/stamp/lib/git"
)

// Environment variables consulted by Detect, in order. GITHUB_HEAD_REF
// is set only on pull_request events and names the source branch;
// GITHUB_REF_NAME would name the merge ref there.
var detectEnvironment = []string{
	"GITHUB_HEAD_REF",
	"GITHUB_REF_NAME",
	"CI_COMMIT_REF_NAME",
}

// Detection is the outcome of Detect.
type Detection struct {
	Branch string `json:"branch"`

	// Source says where the name came from: "flag", an environment
	// variable name, or "git".
	Source string `json:"source"`
}

// Detect determines the branch being built. An explicit name wins, then
// CI environment variables, then the checkout's HEAD. getenv is usually
// os.Getenv; repository may be nil to skip the git fallback.
func Detect(ctx context.Context, explicit string, getenv func(string) string, repository *git.Repository) (Detection, error) {
	if name := strings.TrimSpace(explicit); name != "" {
		return Detection{Branch: name, Source: "flag"}, nil
	}
	if getenv != nil {
		for _, variable := range detectEnvironment {
			if name := strings.TrimSpace(getenv(variable)); name != "" {
				return Detection{Branch: name, Source: variable}, nil
			}
		}
	}
	if repository == nil {
		return Detection{}, errors.New("cannot determine branch: pass --branch or run inside a git checkout")
	}
	name, err := repository.CurrentBranch(ctx)
	if err != nil {
		return Detection{}, fmt.Errorf("cannot determine branch (pass --branch): %w", err)
	}
	return Detection{Branch: name, Source: "git"}, nil
}
