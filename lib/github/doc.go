// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package github is a small GitHub REST API client: enough to list a
// repository's branches for retention decisions.
//
// Requests carry a Bearer token when one is configured; public
// repositories can be read anonymously at a much lower rate limit. The
// client tracks X-RateLimit-* headers, waits out an exhausted window
// before sending, retries once after a 429 or rate-limit 403, and
// follows RFC 5988 Link headers for pagination.
//
// The base URL must use HTTPS. GitHub Enterprise Server is supported
// by pointing BaseURL at its /api/v3 root.
package github
