// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
	"net/url"
)

// branchPageSize is the largest page GitHub serves for branch lists.
const branchPageSize = 100

// Branch is one entry of GET /repos/{owner}/{repo}/branches.
type Branch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
	Commit    struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// ListBranches returns an iterator over every branch of owner/repo.
func (client *Client) ListBranches(owner, repo string) *PageIterator[Branch] {
	path := fmt.Sprintf("/repos/%s/%s/branches?per_page=%d",
		url.PathEscape(owner), url.PathEscape(repo), branchPageSize)
	return list[Branch](client, path)
}

// BranchNames collects the names of every branch of owner/repo.
func (client *Client) BranchNames(ctx context.Context, owner, repo string) ([]string, error) {
	branches, err := client.ListBranches(owner, repo).Collect(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(branches))
	for i, branch := range branches {
		names[i] = branch.Name
	}
	return names, nil
}

// Repository is the subset of GET /repos/{owner}/{repo} stamp reads.
type Repository struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
}

// GetRepository fetches repository metadata. The branch oracle checks
// its listing against DefaultBranch.
func (client *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var repository Repository
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	if err := client.get(ctx, path, &repository); err != nil {
		return nil, err
	}
	return &repository, nil
}
