// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/stamp/lib/testutil"
)

func sampleTree(t *testing.T) string {
	t.Helper()
	return testutil.WriteTree(t, t.TempDir(), map[string]string{
		"package.json":          `{"name":"w","version":"1.0.0"}`,
		"lib/index.js":          "export const x = 1\n",
		"node_modules/dep/a.js": "ignored",
		"README.md":             strings.Repeat("readme ", 200),
	})
}

func TestPackReproducible(t *testing.T) {
	dir := sampleTree(t)
	first, _, err := PackBytes(dir, Options{Prefix: "package"})
	if err != nil {
		t.Fatalf("PackBytes: %v", err)
	}
	// Touch mtimes; output must not change.
	if err := os.Chtimes(filepath.Join(dir, "README.md"), epoch, epoch.Add(1e9)); err != nil {
		t.Fatal(err)
	}
	second, _, err := PackBytes(dir, Options{Prefix: "package"})
	if err != nil {
		t.Fatalf("PackBytes: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("packing the same tree twice produced different bytes")
	}
}

func TestPackPrefixAndExclude(t *testing.T) {
	dir := sampleTree(t)
	if err := os.Symlink("lib/index.js", filepath.Join(dir, "link.js")); err != nil {
		t.Fatal(err)
	}
	data, summary, err := PackBytes(dir, Options{
		Prefix:  "package",
		Exclude: func(p string) bool { return strings.HasPrefix(p, "node_modules/") },
	})
	if err != nil {
		t.Fatalf("PackBytes: %v", err)
	}
	entries, err := Entries(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	want := []string{"package/README.md", "package/lib/index.js", "package/package.json"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("entries = %v, want %v", names, want)
	}
	if summary.Files != 3 {
		t.Errorf("Files = %d, want 3", summary.Files)
	}
	if string(entries[1].Data) != "export const x = 1\n" {
		t.Errorf("lib/index.js content = %q", entries[1].Data)
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	data, _, err := PackBytes(sampleTree(t), Options{})
	if err != nil {
		t.Fatalf("PackBytes: %v", err)
	}
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd, CompressionGzip} {
		compressed, err := Compress(data, c)
		if err != nil {
			t.Fatalf("%s: Compress: %v", c, err)
		}
		restored, err := Decompress(compressed, c)
		if err != nil {
			t.Fatalf("%s: Decompress: %v", c, err)
		}
		if !bytes.Equal(restored, data) {
			t.Errorf("%s: round trip mismatch", c)
		}
		if c != CompressionNone && len(compressed) >= len(data) {
			t.Errorf("%s: compressed %d bytes to %d", c, len(data), len(compressed))
		}
	}
}

func TestGzipReproducible(t *testing.T) {
	data := []byte(strings.Repeat("same input ", 50))
	first, err := Compress(data, CompressionGzip)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compress(data, CompressionGzip)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("gzip output is not reproducible")
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd, CompressionGzip} {
		parsed, err := ParseCompression(c.String())
		if err != nil || parsed != c {
			t.Errorf("ParseCompression(%q) = %v, %v", c.String(), parsed, err)
		}
	}
	if _, err := ParseCompression("brotli"); err == nil {
		t.Error("expected error for unknown compression")
	}
}

func TestEntriesRejectsEscape(t *testing.T) {
	var buffer bytes.Buffer
	dir := testutil.WriteTree(t, t.TempDir(), map[string]string{"a": "x"})
	if _, err := Pack(&buffer, dir, Options{Prefix: "../evil"}); err != nil {
		t.Fatal(err)
	}
	if _, err := Entries(&buffer); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("err = %v, want ErrUnsafePath", err)
	}
}
