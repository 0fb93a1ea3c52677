// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package preview turns a package's declared version, a content
// fingerprint, and a branch name into the concrete version and tag a
// preview build is published under.
//
//	1.0.0-in-development + abc123def456 + feature/login
//	  -> version 1.0.0-preview.abc123def456
//	  -> tag     branch-feature-login
//
// The preview version depends only on the declared version and the
// fingerprint, so two branches that build byte-identical output share
// one registry version. The branch tag depends only on the branch name.
//
// Branch sanitization maps every character outside [A-Za-z0-9_-] to
// "-". The mapping is many-to-one: "feature/x", "feature.x" and
// "feature-x" all produce branch-feature-x. [BranchCandidates] is the
// matching best-effort reverse lookup used by retention.
package preview
