// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package branch

import (
	"context"
	"errors"
	"fmt"

	"github.com/bureau-foundation/stamp/lib/git"
	"github.com/bureau-foundation/stamp/lib/github"
	"github.com/bureau-foundation/stamp/lib/retention"
)

// ErrNoBranches is returned when a listing succeeds with zero branches.
var ErrNoBranches = errors.New("branch listing returned no branches")

// ErrIncompleteListing is returned when a listing omits the
// repository's default branch, which always exists.
var ErrIncompleteListing = errors.New("branch listing is missing the default branch")

// Oracle lists the branches currently present in the source repository.
type Oracle interface {
	Branches(ctx context.Context) (retention.BranchSet, error)
}

// GitHub lists branches through the GitHub REST API. The listing is
// cross-checked against the repository's default branch, so a token
// that sees only part of the repository fails instead of making live
// branches look deleted.
type GitHub struct {
	Client *github.Client
	Owner  string
	Repo   string
}

// Branches implements Oracle.
func (o GitHub) Branches(ctx context.Context) (retention.BranchSet, error) {
	source := o.Owner + "/" + o.Repo
	names, err := o.Client.BranchNames(ctx, o.Owner, o.Repo)
	if err != nil {
		return nil, fmt.Errorf("listing branches of %s: %w", source, err)
	}
	set, err := nonEmpty(names, source)
	if err != nil {
		return nil, err
	}

	repository, err := o.Client.GetRepository(ctx, o.Owner, o.Repo)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source, err)
	}
	if repository.DefaultBranch != "" && !set.Contains(repository.DefaultBranch) {
		return nil, fmt.Errorf("%s: %w %q (%d branches listed)", source, ErrIncompleteListing, repository.DefaultBranch, len(set))
	}
	return set, nil
}

// Git lists branches on a remote with git ls-remote.
type Git struct {
	Repository *git.Repository

	// Remote is a remote name, URL, or path. Defaults to "origin".
	Remote string
}

// Branches implements Oracle.
func (o Git) Branches(ctx context.Context) (retention.BranchSet, error) {
	names, err := o.Repository.RemoteBranches(ctx, o.Remote)
	if err != nil {
		return nil, fmt.Errorf("listing remote branches: %w", err)
	}
	remote := o.Remote
	if remote == "" {
		remote = "origin"
	}
	return nonEmpty(names, remote)
}

// Static is a fixed branch list from configuration.
type Static []string

// Branches implements Oracle.
func (o Static) Branches(context.Context) (retention.BranchSet, error) {
	return nonEmpty(o, "static configuration")
}

func nonEmpty(names []string, source string) (retention.BranchSet, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrNoBranches)
	}
	return retention.NewBranchSet(names...), nil
}
