// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConflict reports that a version being published already exists.
// It is expected during concurrent runs and handled by reusing the
// existing version.
var ErrConflict = errors.New("version already exists")

// ErrNotFound reports that a package, version, or tag does not exist.
var ErrNotFound = errors.New("not found")

// Error is a failed registry operation. Err carries the cause and may
// wrap ErrConflict or ErrNotFound.
type Error struct {
	// Op is the operation: "exists", "list", "publish", "tag", "delete".
	Op string

	Package string
	Version string

	// StatusCode is the HTTP status for HTTP adapters, 0 otherwise.
	StatusCode int

	Err error
}

func (e *Error) Error() string {
	var builder strings.Builder
	builder.WriteString("registry ")
	builder.WriteString(e.Op)
	builder.WriteByte(' ')
	builder.WriteString(e.Package)
	if e.Version != "" {
		builder.WriteByte('@')
		builder.WriteString(e.Version)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&builder, ": HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsConflict reports whether err means the version already exists.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err means the target does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
