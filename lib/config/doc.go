// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads stamp's YAML configuration.
//
// The file is named by the --config flag (via [LoadFile]) or the
// STAMP_CONFIG environment variable (via [Load]). There is no search
// path and no ~/.config discovery: what runs in CI is exactly what the
// pipeline points at.
//
// ${VAR} and ${VAR:-default} are expanded in string fields that hold
// paths, URLs, and repository coordinates. Secrets are never written in
// the file; token_env fields name the environment variable that holds
// them.
//
// On GitHub Actions, empty branches.owner, branches.repo, and
// branches.api_url are filled from GITHUB_REPOSITORY and
// GITHUB_API_URL.
package config
