// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package preview

import (
	"fmt"
	"strings"
)

// TagPrefix starts every branch tag.
const TagPrefix = "branch-"

// DevelopmentSuffix is the pre-release marker packages carry while
// under development. It is stripped before any other pre-release
// suffix.
const DevelopmentSuffix = "-in-development"

// previewMarker separates the base version from the fingerprint.
const previewMarker = "-preview."

// ValidationError reports malformed input to a pure function.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Resolved is the publish target computed for one package.
type Resolved struct {
	// BaseVersion is the declared version reduced to its numeric core.
	BaseVersion string `json:"base_version"`

	// Fingerprint is the content fingerprint of the build output.
	Fingerprint string `json:"fingerprint"`

	// Version is "<BaseVersion>-preview.<Fingerprint>".
	Version string `json:"version"`

	// Tag is "branch-<sanitized branch>".
	Tag string `json:"tag"`
}

// Resolve computes the preview version and branch tag. It performs no
// I/O. The error is always a *ValidationError.
func Resolve(declaredVersion, fingerprint, branch string) (Resolved, error) {
	base, err := BaseVersion(declaredVersion)
	if err != nil {
		return Resolved{}, err
	}
	if fingerprint == "" {
		return Resolved{}, &ValidationError{Field: "fingerprint", Reason: "must not be empty"}
	}
	if !isLowerHex(fingerprint) {
		return Resolved{}, &ValidationError{Field: "fingerprint", Value: fingerprint, Reason: "must be lowercase hex"}
	}
	tag, err := BranchTag(branch)
	if err != nil {
		return Resolved{}, err
	}

	return Resolved{
		BaseVersion: base,
		Fingerprint: fingerprint,
		Version:     base + previewMarker + fingerprint,
		Tag:         tag,
	}, nil
}

// BaseVersion strips a trailing "-in-development" marker, then drops
// everything from the first remaining "-" (pre-release) or "+" (build
// metadata). What remains must be a dotted numeric core such as
// "2.3.0".
//
//	1.0.0-in-development -> 1.0.0
//	2.3.0-rc.1           -> 2.3.0
//	2.3.0-rc.1-in-development -> 2.3.0
//	0.0.1                -> 0.0.1
func BaseVersion(declared string) (string, error) {
	trimmed := strings.TrimSpace(declared)
	if trimmed == "" {
		return "", &ValidationError{Field: "declared version", Reason: "must not be empty"}
	}

	core := strings.TrimSuffix(trimmed, DevelopmentSuffix)
	if index := strings.IndexAny(core, "-+"); index >= 0 {
		core = core[:index]
	}

	if !isNumericCore(core) {
		return "", &ValidationError{Field: "declared version", Value: declared, Reason: "does not start with a dotted numeric core like 1.2.3"}
	}
	return core, nil
}

// SanitizeBranch replaces every character outside [A-Za-z0-9_-] with
// "-". Each non-ASCII rune becomes a single "-".
func SanitizeBranch(branch string) string {
	var builder strings.Builder
	builder.Grow(len(branch))
	for _, r := range branch {
		if isTagRune(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteByte('-')
		}
	}
	return builder.String()
}

// BranchTag returns "branch-<sanitized branch>".
func BranchTag(branch string) (string, error) {
	if strings.TrimSpace(branch) == "" {
		return "", &ValidationError{Field: "branch", Reason: "must not be empty"}
	}
	return TagPrefix + SanitizeBranch(branch), nil
}

// BranchCandidates reverse-maps a branch tag to the branch names it may
// have come from: the literal remainder and that remainder with every
// "-" restored to "/". ok is false when tag is not a branch tag.
// Because sanitization is lossy, the candidates are a best-effort
// guess, not an inverse.
func BranchCandidates(tag string) (literal, slashed string, ok bool) {
	name, found := strings.CutPrefix(tag, TagPrefix)
	if !found {
		return "", "", false
	}
	return name, strings.ReplaceAll(name, "-", "/"), true
}

// IsPreviewVersion reports whether version has the shape Resolve
// produces.
func IsPreviewVersion(version string) bool {
	base, fingerprint, found := strings.Cut(version, previewMarker)
	return found && isNumericCore(base) && fingerprint != "" && isLowerHex(fingerprint)
}

func isTagRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
}

func isNumericCore(core string) bool {
	if core == "" {
		return false
	}
	for _, part := range strings.Split(core, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func isLowerHex(value string) bool {
	for _, r := range value {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
