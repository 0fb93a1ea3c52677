// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
)

// ExitCoder is implemented by errors that carry their own exit status
// and have already reported themselves to the user.
type ExitCoder interface {
	ExitCode() int
}

// Exit terminates the process for an error returned from run(). Errors
// implementing ExitCoder exit with their code and print nothing extra;
// everything else prints "error: err" to stderr and exits 1. A nil err
// returns without exiting.
func Exit(err error) {
	if err == nil {
		return
	}
	if coder, ok := err.(ExitCoder); ok {
		os.Exit(coder.ExitCode())
	}
	Fatal(err)
}

// Fatal writes "error: err" to stderr and exits with code 1.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
