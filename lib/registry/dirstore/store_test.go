// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/stamp/lib/clock"
	"github.com/bureau-foundation/stamp/lib/codec"
	"github.com/bureau-foundation/stamp/lib/registry"
	"github.com/bureau-foundation/stamp/lib/testutil"
)

var epoch = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, compression string) (*Store, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	store, err := New(t.TempDir(), Options{Clock: fake, Compression: compression})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, fake
}

func packageDir(t *testing.T, version string) string {
	t.Helper()
	return testutil.WriteTree(t, t.TempDir(), map[string]string{
		"package.json": `{"name":"@acme/widget","version":"` + version + `"}`,
		"index.js":     "export default 42\n",
	})
}

func publish(t *testing.T, store *Store, version, tag string) error {
	t.Helper()
	return store.Publish(context.Background(), registry.PublishRequest{
		Name:     "@acme/widget",
		Version:  version,
		Tag:      tag,
		Dir:      packageDir(t, version),
		Manifest: "package.json",
	})
}

func TestPublishAndList(t *testing.T) {
	store, fake := newTestStore(t, "")
	ctx := context.Background()

	if err := publish(t, store, "1.0.0-preview.aaaaaaaaaaaa", "branch-main"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	fake.Advance(time.Hour)
	if err := publish(t, store, "1.0.0-preview.bbbbbbbbbbbb", "branch-feature"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	exists, err := store.VersionExists(ctx, "@acme/widget", "1.0.0-preview.aaaaaaaaaaaa")
	if err != nil || !exists {
		t.Fatalf("VersionExists = %v, %v", exists, err)
	}
	exists, err = store.VersionExists(ctx, "@acme/widget", "9.9.9")
	if err != nil || exists {
		t.Fatalf("VersionExists(missing) = %v, %v", exists, err)
	}

	versions, err := store.ListVersions(ctx, "@acme/widget")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("ListVersions returned %d versions", len(versions))
	}
	if versions[0].Version != "1.0.0-preview.aaaaaaaaaaaa" || !versions[0].PublishedAt.Equal(epoch) {
		t.Errorf("versions[0] = %+v", versions[0])
	}
	if versions[1].Tags[0] != "branch-feature" || !versions[1].PublishedAt.Equal(epoch.Add(time.Hour)) {
		t.Errorf("versions[1] = %+v", versions[1])
	}
}

func TestPublishConflict(t *testing.T) {
	store, _ := newTestStore(t, "")
	if err := publish(t, store, "1.0.0", "branch-main"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	err := publish(t, store, "1.0.0", "branch-other")
	if !registry.IsConflict(err) {
		t.Fatalf("second Publish: err = %v, want conflict", err)
	}
	var registryError *registry.Error
	if !errors.As(err, &registryError) || registryError.Op != "publish" {
		t.Errorf("error = %#v, want *registry.Error with Op publish", err)
	}
}

func TestConcurrentPublishOneWins(t *testing.T) {
	store, _ := newTestStore(t, "lz4")
	dir := packageDir(t, "2.0.0")

	const publishers = 8
	var wg sync.WaitGroup
	errs := make([]error, publishers)
	for i := range publishers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = store.Publish(context.Background(), registry.PublishRequest{
				Name: "@acme/widget", Version: "2.0.0", Tag: "branch-main", Dir: dir,
			})
		}()
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case registry.IsConflict(err):
			conflicted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != publishers-1 {
		t.Fatalf("succeeded=%d conflicted=%d", succeeded, conflicted)
	}
}

func TestAddTagMovesAndAccumulates(t *testing.T) {
	store, _ := newTestStore(t, "")
	ctx := context.Background()
	if err := publish(t, store, "1.0.0", "branch-main"); err != nil {
		t.Fatal(err)
	}
	if err := publish(t, store, "1.0.1", "branch-dev"); err != nil {
		t.Fatal(err)
	}

	if err := store.AddTag(ctx, "@acme/widget", "1.0.0", "branch-feature-x"); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	// Moving branch-dev from 1.0.1 to 1.0.0 leaves 1.0.1 orphaned.
	if err := store.AddTag(ctx, "@acme/widget", "1.0.0", "branch-dev"); err != nil {
		t.Fatalf("AddTag: %v", err)
	}

	versions, err := store.ListVersions(ctx, "@acme/widget")
	if err != nil {
		t.Fatal(err)
	}
	byVersion := map[string]registry.PublishedVersion{}
	for _, v := range versions {
		byVersion[v.Version] = v
	}
	if got := byVersion["1.0.0"].Tags; len(got) != 3 {
		t.Errorf("1.0.0 tags = %v, want 3", got)
	}
	if !byVersion["1.0.1"].Orphaned() {
		t.Errorf("1.0.1 tags = %v, want orphaned", byVersion["1.0.1"].Tags)
	}

	err = store.AddTag(ctx, "@acme/widget", "3.0.0", "branch-main")
	if !registry.IsNotFound(err) {
		t.Errorf("AddTag(missing) err = %v, want not found", err)
	}
}

func TestDeleteVersion(t *testing.T) {
	store, _ := newTestStore(t, "gzip")
	ctx := context.Background()
	if err := publish(t, store, "1.0.0", "branch-main"); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteVersion(ctx, "@acme/widget", "1.0.0"); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	versions, err := store.ListVersions(ctx, "@acme/widget")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 0 {
		t.Errorf("versions after delete = %+v", versions)
	}

	entries, err := os.ReadDir(filepath.Join(store.Root(), "@acme%2Fwidget", "versions"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("files left in versions dir: %v", entries)
	}

	if err := store.DeleteVersion(ctx, "@acme/widget", "1.0.0"); !registry.IsNotFound(err) {
		t.Errorf("second delete err = %v, want not found", err)
	}

	// The version can be published again once deleted.
	if err := publish(t, store, "1.0.0", "branch-main"); err != nil {
		t.Errorf("republish after delete: %v", err)
	}
}

func TestContentsRoundTrip(t *testing.T) {
	for _, compression := range []string{"none", "lz4", "zstd", "gzip"} {
		t.Run(compression, func(t *testing.T) {
			store, _ := newTestStore(t, compression)
			if err := publish(t, store, "1.2.3", "branch-main"); err != nil {
				t.Fatal(err)
			}
			entries, err := store.Contents(context.Background(), "@acme/widget", "1.2.3")
			if err != nil {
				t.Fatalf("Contents: %v", err)
			}
			if len(entries) != 2 || entries[0].Name != "index.js" || entries[1].Name != "package.json" {
				t.Fatalf("entries = %+v", entries)
			}
			if string(entries[1].Data) != `{"name":"@acme/widget","version":"1.2.3"}` {
				t.Errorf("package.json = %s", entries[1].Data)
			}
		})
	}
}

func TestListUnknownPackage(t *testing.T) {
	store, _ := newTestStore(t, "")
	versions, err := store.ListVersions(context.Background(), "never-published")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if versions == nil || len(versions) != 0 {
		t.Errorf("versions = %#v, want empty non-nil slice", versions)
	}
}

func TestInvalidNames(t *testing.T) {
	store, _ := newTestStore(t, "")
	ctx := context.Background()
	if _, err := store.VersionExists(ctx, "..", "1.0.0"); err == nil {
		t.Error("expected error for package name ..")
	}
	if _, err := store.VersionExists(ctx, "ok", ""); err == nil {
		t.Error("expected error for empty version")
	}
	if _, err := New(t.TempDir(), Options{Compression: "brotli"}); err == nil {
		t.Error("expected error for unknown compression")
	}
}

func TestCancelledContext(t *testing.T) {
	store, _ := newTestStore(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := publish(t, store, "1.0.0", "branch-main"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ListVersions(ctx, "@acme/widget"); !errors.Is(err, context.Canceled) {
		t.Errorf("ListVersions err = %v, want context.Canceled", err)
	}
}

func TestMalformedTagIndexIsDescribed(t *testing.T) {
	store, _ := newTestStore(t, "")
	if err := publish(t, store, "1.0.0", "latest"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Valid CBOR of the wrong shape: an array where a map is expected.
	data, err := codec.Marshal([]string{"not-an-index"})
	if err != nil {
		t.Fatal(err)
	}
	dir, err := store.packageDir("@acme/widget")
	if err != nil {
		t.Fatal(err)
	}
	indexPath := filepath.Join(dir, "tags.cbor")
	if _, err := os.Stat(indexPath); err != nil {
		t.Fatalf("tag index not where expected: %v", err)
	}
	if err := os.WriteFile(indexPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = store.ListVersions(context.Background(), "@acme/widget")
	if err == nil {
		t.Fatal("ListVersions succeeded with a malformed tag index")
	}
	if !strings.Contains(err.Error(), `"not-an-index"`) {
		t.Errorf("err = %v, want the diagnostic notation of the file", err)
	}

	// Bytes that are not CBOR at all are reported without a quote.
	if err := os.WriteFile(indexPath, []byte{0xff, 0xff}, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = store.ListVersions(context.Background(), "@acme/widget")
	if err == nil || strings.Contains(err.Error(), "(found") {
		t.Errorf("err = %v, want a decode error without a diagnostic", err)
	}
}
