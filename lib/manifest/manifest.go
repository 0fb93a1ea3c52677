// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// Names lists recognized manifest file names in lookup order.
var Names = []string{"package.json", "deno.json", "deno.jsonc"}

// ErrNotFound is returned by Find when a directory holds no manifest.
var ErrNotFound = errors.New("no package manifest found")

// Manifest is a parsed package manifest.
type Manifest struct {
	// Path is the manifest file on disk.
	Path string

	// Name is the top-level "name" field.
	Name string

	// Version is the top-level "version" field.
	Version string

	data []byte
	mode os.FileMode

	// versionStart and versionEnd delimit the version value in data,
	// quotes included.
	versionStart int
	versionEnd   int
}

// Find returns the path of the first manifest in dir, trying [Names] in
// order.
func Find(dir string) (string, error) {
	for _, name := range Names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%s: %w (looked for %v)", dir, ErrNotFound, Names)
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	manifest, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	manifest.Path = path
	manifest.mode = info.Mode().Perm()
	return manifest, nil
}

// Parse parses manifest bytes. Comments and trailing commas are
// accepted. The top-level "name" and "version" fields must be strings;
// "version" is required.
func Parse(data []byte) (*Manifest, error) {
	// ToJSON replaces comments and trailing commas with spaces, so every
	// byte offset in stripped is valid in data.
	stripped := jsonc.ToJSON(data)
	if len(stripped) != len(data) {
		return nil, fmt.Errorf("normalizing manifest changed its length (%d to %d bytes)", len(data), len(stripped))
	}

	manifest := &Manifest{data: data, mode: 0o644, versionStart: -1}

	decoder := json.NewDecoder(bytes.NewReader(stripped))
	token, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("parsing manifest: top level is not an object")
	}

	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
		key, _ := token.(string)
		keyEnd := int(decoder.InputOffset())

		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing manifest field %q: %w", key, err)
		}
		valueEnd := int(decoder.InputOffset())

		switch key {
		case "name":
			if err := json.Unmarshal(raw, &manifest.Name); err != nil {
				return nil, fmt.Errorf("manifest field \"name\" is not a string")
			}
		case "version":
			if err := json.Unmarshal(raw, &manifest.Version); err != nil {
				return nil, fmt.Errorf("manifest field \"version\" is not a string")
			}
			start := bytes.IndexByte(stripped[keyEnd:valueEnd], '"')
			if start < 0 {
				return nil, errors.New("locating manifest version value")
			}
			manifest.versionStart = keyEnd + start
			manifest.versionEnd = valueEnd
		}
	}
	if _, err := decoder.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	if manifest.versionStart < 0 {
		return nil, errors.New("manifest has no \"version\" field")
	}
	return manifest, nil
}

// Bytes returns the manifest's original bytes.
func (m *Manifest) Bytes() []byte { return m.data }

// Document returns the manifest's top-level fields as raw JSON, with
// comments and trailing commas removed. Registries that embed the
// manifest in their metadata (npm packuments) use this.
func (m *Manifest) Document() (map[string]json.RawMessage, error) {
	var document map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(m.data), &document); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return document, nil
}

// WithVersion returns the manifest bytes with the version value
// replaced by version. Nothing else changes.
func (m *Manifest) WithVersion(version string) ([]byte, error) {
	encoded, err := json.Marshal(version)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(m.data)-(m.versionEnd-m.versionStart)+len(encoded))
	out = append(out, m.data[:m.versionStart]...)
	out = append(out, encoded...)
	out = append(out, m.data[m.versionEnd:]...)
	return out, nil
}

// Override rewrites the manifest on disk with version and returns a
// function that restores the original bytes. The caller must invoke
// restore on every exit path, typically with defer.
func (m *Manifest) Override(version string) (restore func() error, err error) {
	if m.Path == "" {
		return nil, errors.New("manifest has no path")
	}
	rewritten, err := m.WithVersion(version)
	if err != nil {
		return nil, err
	}
	if err := writeFile(m.Path, rewritten, m.mode); err != nil {
		return nil, fmt.Errorf("overriding manifest version: %w", err)
	}
	original := m.data
	return func() error {
		if err := writeFile(m.Path, original, m.mode); err != nil {
			return fmt.Errorf("restoring manifest %s: %w", m.Path, err)
		}
		return nil
	}, nil
}

// writeFile replaces path atomically through a sibling temp file.
func writeFile(path string, data []byte, mode os.FileMode) error {
	temp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tempPath := temp.Name()
	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := temp.Chmod(mode); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}
