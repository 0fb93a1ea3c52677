// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package git wraps the git CLI for the two questions stamp asks a
// checkout: which branch is this, and which branches does the remote
// still have. Every command targets a specific directory via -C; there
// is no implicit working directory.
package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// ErrDetachedHead is returned by CurrentBranch when HEAD does not point
// at a branch (tag checkouts, CI merge refs).
var ErrDetachedHead = errors.New("HEAD is detached")

// Repository is a git checkout at a specific directory.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes git with args against the repository and returns stdout.
// Stderr is folded into the error on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// CurrentBranch returns the short name of the checked-out branch.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(output)
	if branch == "" || branch == "HEAD" {
		return "", ErrDetachedHead
	}
	return branch, nil
}

// RemoteBranches lists the branch names on remote (a remote name, URL,
// or path) using "git ls-remote --heads". Names are returned sorted
// without the refs/heads/ prefix.
func (r *Repository) RemoteBranches(ctx context.Context, remote string) ([]string, error) {
	if remote == "" {
		remote = "origin"
	}
	output, err := r.Run(ctx, "ls-remote", "--heads", remote)
	if err != nil {
		return nil, err
	}
	return parseHeads(output)
}

// parseHeads parses ls-remote output lines of the form
// "<sha>\trefs/heads/<name>".
func parseHeads(output string) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		_, ref, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("unexpected ls-remote line %q", line)
		}
		name, ok := strings.CutPrefix(ref, "refs/heads/")
		if !ok {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
