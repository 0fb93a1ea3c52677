// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/bureau-foundation/stamp/lib/fingerprint"
	"github.com/bureau-foundation/stamp/lib/github"
	"github.com/bureau-foundation/stamp/lib/manifest"
	"github.com/bureau-foundation/stamp/lib/preview"
	"github.com/bureau-foundation/stamp/lib/registry"
)

// ErrorCategory classifies errors so that scripts consuming --json
// output can decide whether to retry, fix input, or escalate without
// parsing message text.
type ErrorCategory string

const (
	// CategoryValidation indicates invalid input: bad flags, a
	// malformed version, an invalid config file.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced resource does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden indicates missing or rejected credentials.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict indicates the operation conflicts with existing
	// registry state.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient indicates a temporary failure: rate limit,
	// server error, timeout. Retrying later may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryIO indicates a local filesystem failure.
	CategoryIO ErrorCategory = "io"

	// CategoryInternal is everything else.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error returned by commands. It wraps the
// inner error so errors.Is and errors.As still walk the full chain.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

// Error returns the underlying error message without the category.
func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Classify returns the category of err. An explicit [ToolError] wins;
// otherwise the error chain is inspected for the typed errors of the
// stamp libraries.
func Classify(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	var toolError *ToolError
	if errors.As(err, &toolError) {
		return toolError.Category
	}

	var validationError *preview.ValidationError
	if errors.As(err, &validationError) {
		return CategoryValidation
	}

	if registry.IsConflict(err) {
		return CategoryConflict
	}
	if registry.IsNotFound(err) || errors.Is(err, manifest.ErrNotFound) || github.IsNotFound(err) {
		return CategoryNotFound
	}
	if github.IsUnauthorized(err) {
		return CategoryForbidden
	}
	if github.IsRateLimited(err) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	var registryError *registry.Error
	if errors.As(err, &registryError) {
		switch {
		case registryError.StatusCode == http.StatusUnauthorized || registryError.StatusCode == http.StatusForbidden:
			return CategoryForbidden
		case registryError.StatusCode == http.StatusTooManyRequests || registryError.StatusCode >= 500:
			return CategoryTransient
		}
	}

	var ioError *fingerprint.IOError
	if errors.As(err, &ioError) {
		return CategoryIO
	}
	var pathError *os.PathError
	if errors.As(err, &pathError) {
		return CategoryIO
	}

	return CategoryInternal
}
