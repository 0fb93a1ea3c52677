// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package npm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/stamp/lib/clock"
	"github.com/bureau-foundation/stamp/lib/netutil"
	"github.com/bureau-foundation/stamp/lib/registry"
	"github.com/bureau-foundation/stamp/lib/version"
)

// DefaultBaseURL is the public npm registry.
const DefaultBaseURL = "https://registry.npmjs.org"

// defaultRetryAfter is the backoff for a 429 without a usable
// Retry-After header.
const defaultRetryAfter = time.Second

// Config holds configuration for creating an npm registry Client.
type Config struct {
	// BaseURL is the registry root. Defaults to DefaultBaseURL. Must
	// use HTTPS unless the host is loopback.
	BaseURL string

	// Token is sent as a Bearer token. Reads against public registries
	// work without one; publishing, tagging, and deleting do not.
	Token string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Clock drives retry backoff. Defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to one npm registry.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

var _ registry.Registry = (*Client)(nil)

// NewClient validates config and returns a Client.
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if _, err := netutil.RequireSecureURL(baseURL); err != nil {
		return nil, fmt.Errorf("npm: %w", err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var authHeader string
	if config.Token != "" {
		authHeader = "Bearer " + config.Token
	}

	return &Client{
		baseURL:    baseURL,
		authHeader: authHeader,
		httpClient: httpClient,
		clock:      clk,
		logger:     logger,
	}, nil
}

// call identifies a registry operation for error reporting.
type call struct {
	op      string
	name    string
	version string
}

func (c call) fail(statusCode int, err error) error {
	return &registry.Error{Op: c.op, Package: c.name, Version: c.version, StatusCode: statusCode, Err: err}
}

// do executes one request. body, when non-nil, is sent as JSON. On a
// 429 it waits once per the Retry-After header and retries. Non-2xx
// responses become *registry.Error wrapping ErrNotFound or ErrConflict
// where the status warrants.
func (client *Client) do(ctx context.Context, target call, method, path string, body []byte) ([]byte, error) {
	responseBody, statusCode, header, err := client.doRaw(ctx, method, path, body)
	if err != nil {
		return nil, target.fail(0, err)
	}

	if statusCode == http.StatusTooManyRequests {
		wait := retryAfter(header)
		client.logger.Info("rate limited, backing off",
			"duration", wait,
			"method", method,
			"path", path,
		)
		select {
		case <-client.clock.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		responseBody, statusCode, _, err = client.doRaw(ctx, method, path, body)
		if err != nil {
			return nil, target.fail(0, err)
		}
	}

	if statusCode < 200 || statusCode >= 300 {
		return nil, target.fail(statusCode, classify(target.op, statusCode, responseBody))
	}
	return responseBody, nil
}

func (client *Client) doRaw(ctx context.Context, method, path string, body []byte) ([]byte, int, http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("creating request: %w", err)
	}
	if client.authHeader != "" {
		request.Header.Set("Authorization", client.authHeader)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("reading response body: %w", err)
	}
	return responseBody, response.StatusCode, response.Header, nil
}

// classify turns an error response into an error value. The registry's
// own message is preserved.
func classify(op string, statusCode int, body []byte) error {
	message := errorMessage(body)
	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", registry.ErrNotFound, message)
	case statusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", registry.ErrConflict, message)
	case op == "publish" && statusCode == http.StatusForbidden && isPublishOverMessage(message):
		return fmt.Errorf("%w: %s", registry.ErrConflict, message)
	default:
		return errors.New(message)
	}
}

// errorMessage extracts the human-readable message from an npm error
// body. npm uses {"error": ..., "reason": ...}; GitHub Packages and
// Artifactory use {"message": ...}.
func errorMessage(body []byte) string {
	var wire struct {
		Error   string `json:"error"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &wire) == nil {
		switch {
		case wire.Reason != "" && wire.Error != "":
			return wire.Error + ": " + wire.Reason
		case wire.Reason != "":
			return wire.Reason
		case wire.Error != "":
			return wire.Error
		case wire.Message != "":
			return wire.Message
		}
	}
	message := strings.TrimSpace(string(body))
	if message == "" {
		return "empty response body"
	}
	return message
}

func isPublishOverMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "cannot publish over") ||
		strings.Contains(lower, "previously published") ||
		strings.Contains(lower, "already exists")
}

func retryAfter(header http.Header) time.Duration {
	if value := header.Get("Retry-After"); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultRetryAfter
}

// escapeName returns the URL path form of a package name.
func escapeName(name string) string {
	if strings.HasPrefix(name, "@") {
		return strings.Replace(name, "/", "%2f", 1)
	}
	return name
}

// tarballName returns the file name npm uses for a version's tarball:
// the unscoped name, a dash, the version, and ".tgz".
func tarballName(name, version string) string {
	if index := strings.LastIndex(name, "/"); index >= 0 {
		name = name[index+1:]
	}
	return name + "-" + version + ".tgz"
}
