// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/stamp/lib/testutil"
)

const packageJSON = `{
  "name": "@acme/widget",
  "version": "1.0.0-in-development",
  "scripts": {
    "version": "echo nested key must not match"
  }
}
`

const denoJSONC = `{
  // Deno workspace member.
  "name": "@acme/deno-widget",
  /* the "version": "9.9.9" in this comment is ignored */
  "version":   "2.3.0-rc.1",
  "exports": "./mod.ts",
}
`

func TestParsePackageJSON(t *testing.T) {
	manifest, err := Parse([]byte(packageJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if manifest.Name != "@acme/widget" {
		t.Errorf("Name = %q", manifest.Name)
	}
	if manifest.Version != "1.0.0-in-development" {
		t.Errorf("Version = %q", manifest.Version)
	}
}

func TestWithVersionPreservesEverythingElse(t *testing.T) {
	manifest, err := Parse([]byte(packageJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := manifest.WithVersion("1.0.0-preview.abc123def456")
	if err != nil {
		t.Fatalf("WithVersion: %v", err)
	}
	want := strings.Replace(packageJSON, `"1.0.0-in-development"`, `"1.0.0-preview.abc123def456"`, 1)
	if string(got) != want {
		t.Errorf("WithVersion output:\n%s\nwant:\n%s", got, want)
	}
}

func TestParseJSONCKeepsComments(t *testing.T) {
	manifest, err := Parse([]byte(denoJSONC))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if manifest.Version != "2.3.0-rc.1" {
		t.Fatalf("Version = %q, want 2.3.0-rc.1", manifest.Version)
	}
	got, err := manifest.WithVersion("2.3.0-preview.0123456789ab")
	if err != nil {
		t.Fatalf("WithVersion: %v", err)
	}
	want := strings.Replace(denoJSONC, `"2.3.0-rc.1"`, `"2.3.0-preview.0123456789ab"`, 1)
	if string(got) != want {
		t.Errorf("WithVersion output:\n%s\nwant:\n%s", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"not an object":  `["version"]`,
		"no version":     `{"name": "x"}`,
		"numeric":        `{"version": 1}`,
		"malformed":      `{"version": `,
		"nested version": `{"meta": {"version": "1.0.0"}}`,
	}
	for name, input := range tests {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestFind(t *testing.T) {
	dir := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"deno.jsonc": denoJSONC,
	})
	path, err := Find(dir)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if filepath.Base(path) != "deno.jsonc" {
		t.Errorf("Find = %s", path)
	}

	testutil.WriteTree(t, dir, map[string]string{"package.json": packageJSON})
	path, err = Find(dir)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if filepath.Base(path) != "package.json" {
		t.Errorf("package.json should win, got %s", path)
	}

	if _, err := Find(t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty dir: err = %v, want ErrNotFound", err)
	}
}

func TestOverrideAndRestore(t *testing.T) {
	dir := testutil.WriteTree(t, t.TempDir(), map[string]string{"package.json": packageJSON})
	path := filepath.Join(dir, "package.json")
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}

	manifest, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	restore, err := manifest.Override("1.0.0-preview.abc123def456")
	if err != nil {
		t.Fatalf("Override: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load after override: %v", err)
	}
	if reloaded.Version != "1.0.0-preview.abc123def456" {
		t.Errorf("on-disk version = %q", reloaded.Version)
	}

	if err := restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := testutil.ReadFile(t, path); got != packageJSON {
		t.Errorf("restored file differs:\n%s", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestDocument(t *testing.T) {
	manifest, err := Parse([]byte(denoJSONC))
	if err != nil {
		t.Fatal(err)
	}
	document, err := manifest.Document()
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if string(document["exports"]) != `"./mod.ts"` {
		t.Errorf("exports = %s", document["exports"])
	}
	if len(document) != 3 {
		t.Errorf("document has %d fields, want 3", len(document))
	}
}
