// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers. Fatal is the one
// place where stamp writes raw text to stderr before (or instead of)
// the structured logger.
package process
