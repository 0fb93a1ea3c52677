// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package npm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRegistry is an in-memory npm registry speaking enough of the
// protocol for Client: packuments, single-version reads, publish,
// dist-tags, and revision-checked write-back.
type fakeRegistry struct {
	mu       sync.Mutex
	name     string
	escaped  string
	versions map[string]json.RawMessage
	times    map[string]string
	tags     map[string]string
	revision int
	tarballs map[string]string // file name -> base64 data

	// requests records "METHOD escapedPath" for every request.
	requests []string
}

func newFakeRegistry(t *testing.T, name string) (*fakeRegistry, *httptest.Server) {
	t.Helper()
	fake := &fakeRegistry{
		name:     name,
		escaped:  escapeName(name),
		versions: map[string]json.RawMessage{},
		times:    map[string]string{},
		tags:     map[string]string{},
		tarballs: map[string]string{},
		revision: 1,
	}
	server := httptest.NewTLSServer(fake)
	t.Cleanup(server.Close)
	return fake, server
}

// seed adds a version as if published at publishedAt.
func (f *fakeRegistry) seed(version string, publishedAt time.Time, tags ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versions[version] = json.RawMessage(fmt.Sprintf(`{"name":%q,"version":%q}`, f.name, version))
	f.times[version] = publishedAt.UTC().Format("2006-01-02T15:04:05.000Z")
	for _, tag := range tags {
		f.tags[tag] = version
	}
	f.tarballs[tarballName(f.name, version)] = "seeded"
}

func (f *fakeRegistry) rev() string { return fmt.Sprintf("%d-abc", f.revision) }

func (f *fakeRegistry) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := request.URL.EscapedPath()
	f.requests = append(f.requests, request.Method+" "+path)
	packagePath := "/" + f.escaped

	writeError := func(status int, reason string) {
		writer.WriteHeader(status)
		json.NewEncoder(writer).Encode(map[string]string{"error": http.StatusText(status), "reason": reason})
	}

	switch {
	case request.Method == http.MethodGet && path == packagePath:
		if len(f.versions) == 0 {
			writeError(http.StatusNotFound, "not found")
			return
		}
		times := map[string]string{"created": "2020-01-01T00:00:00.000Z", "modified": "2020-01-01T00:00:00.000Z"}
		for version, value := range f.times {
			times[version] = value
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"_id":       f.name,
			"_rev":      f.rev(),
			"name":      f.name,
			"dist-tags": f.tags,
			"versions":  f.versions,
			"time":      times,
			"readme":    "kept verbatim",
		})

	case request.Method == http.MethodGet && strings.HasPrefix(path, packagePath+"/"):
		version := strings.TrimPrefix(path, packagePath+"/")
		document, ok := f.versions[version]
		if !ok {
			writeError(http.StatusNotFound, "version not found: "+version)
			return
		}
		writer.Write(document)

	case request.Method == http.MethodPut && path == packagePath:
		var body struct {
			DistTags    map[string]string          `json:"dist-tags"`
			Versions    map[string]json.RawMessage `json:"versions"`
			Attachments map[string]struct {
				Data   string `json:"data"`
				Length int    `json:"length"`
			} `json:"_attachments"`
		}
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			writeError(http.StatusBadRequest, err.Error())
			return
		}
		for version := range body.Versions {
			if _, exists := f.versions[version]; exists {
				writeError(http.StatusForbidden, "You cannot publish over the previously published versions: "+version+".")
				return
			}
		}
		for version, document := range body.Versions {
			f.versions[version] = document
			f.times[version] = "2026-06-01T00:00:00.000Z"
		}
		for tag, version := range body.DistTags {
			f.tags[tag] = version
		}
		for file, attachment := range body.Attachments {
			f.tarballs[file] = attachment.Data
		}
		f.revision++
		writer.WriteHeader(http.StatusCreated)
		writer.Write([]byte(`{"ok":true}`))

	case request.Method == http.MethodPut && strings.HasPrefix(path, "/-/package/"+f.escaped+"/dist-tags/"):
		tag := strings.TrimPrefix(path, "/-/package/"+f.escaped+"/dist-tags/")
		var version string
		if err := json.NewDecoder(request.Body).Decode(&version); err != nil {
			writeError(http.StatusBadRequest, err.Error())
			return
		}
		if _, ok := f.versions[version]; !ok {
			writeError(http.StatusNotFound, "version not found")
			return
		}
		f.tags[tag] = version
		f.revision++
		writer.Write([]byte(`{"ok":true}`))

	case request.Method == http.MethodPut && path == packagePath+"/-rev/"+f.rev():
		var body struct {
			DistTags map[string]string          `json:"dist-tags"`
			Versions map[string]json.RawMessage `json:"versions"`
			Time     map[string]string          `json:"time"`
			Readme   string                     `json:"readme"`
		}
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			writeError(http.StatusBadRequest, err.Error())
			return
		}
		if body.Readme != "kept verbatim" {
			writeError(http.StatusBadRequest, "write-back dropped fields")
			return
		}
		f.versions = body.Versions
		f.tags = body.DistTags
		delete(body.Time, "created")
		delete(body.Time, "modified")
		f.times = body.Time
		f.revision++
		writer.Write([]byte(`{"ok":true}`))

	case request.Method == http.MethodDelete && path == packagePath+"/-rev/"+f.rev():
		f.versions = map[string]json.RawMessage{}
		f.times = map[string]string{}
		f.tags = map[string]string{}
		f.revision++
		writer.Write([]byte(`{"ok":true}`))

	case request.Method == http.MethodDelete && strings.HasPrefix(path, packagePath+"/-/"):
		rest := strings.TrimPrefix(path, packagePath+"/-/")
		file, rev, ok := strings.Cut(rest, "/-rev/")
		if !ok || rev != f.rev() {
			writeError(http.StatusConflict, "revision mismatch")
			return
		}
		delete(f.tarballs, file)
		f.revision++
		writer.Write([]byte(`{"ok":true}`))

	default:
		writeError(http.StatusConflict, fmt.Sprintf("unexpected request %s %s (rev %s)", request.Method, path, f.rev()))
	}
}
