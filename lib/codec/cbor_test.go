// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type sampleRecord struct {
	Version     string    `cbor:"version"`
	PublishedAt time.Time `cbor:"published_at"`
	Tags        []string  `cbor:"tags,omitempty"`
}

func TestRoundTrip(t *testing.T) {
	original := sampleRecord{
		Version:     "1.0.0-preview.abc123def456",
		PublishedAt: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		Tags:        []string{"branch-main"},
	}
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Version != original.Version || !decoded.PublishedAt.Equal(original.PublishedAt) {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
	if len(decoded.Tags) != 1 || decoded.Tags[0] != "branch-main" {
		t.Errorf("Tags = %v", decoded.Tags)
	}
}

func TestDeterministicMapOrder(t *testing.T) {
	first := map[string]string{"b": "2", "a": "1", "c": "3"}
	second := map[string]string{"c": "3", "a": "1", "b": "2"}

	firstBytes, err := Marshal(first)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	secondBytes, err := Marshal(second)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(firstBytes, secondBytes) {
		t.Errorf("encodings differ: %x vs %x", firstBytes, secondBytes)
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]string{"tag": "branch-main"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"branch-main"`) {
		t.Errorf("Diagnose = %s, want it to mention branch-main", notation)
	}
}
