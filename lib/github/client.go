// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bureau-foundation/stamp/lib/clock"
	"github.com/bureau-foundation/stamp/lib/netutil"
	"github.com/bureau-foundation/stamp/lib/version"
)

// apiVersion pins the REST API version header.
const apiVersion = "2022-11-28"

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL. Must use HTTPS.
	BaseURL string

	// Token is a personal access token, fine-grained token, or the
	// Actions GITHUB_TOKEN. Empty means anonymous access.
	Token string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Clock defaults to clock.Real(). Tests inject clock.Fake to drive
	// rate limit backoff.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a GitHub REST API client.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	rateLimit  *rateLimitTracker
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient returns a Client for config. Returns an error for a
// non-HTTPS base URL.
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
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
		rateLimit:  newRateLimitTracker(clk),
		clock:      clk,
		logger:     logger,
	}, nil
}

// get fetches path (relative to the base URL) and decodes the JSON
// response into result.
func (client *Client) get(ctx context.Context, path string, result any) error {
	response, err := client.send(ctx, client.baseURL+path)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return parseAPIError(response)
	}
	return netutil.DecodeResponse(response.Body, result)
}

// send issues an authenticated GET for an absolute URL. It waits out an
// exhausted rate limit window first and retries once after a
// rate-limited response. The caller closes the response body.
func (client *Client) send(ctx context.Context, url string) (*http.Response, error) {
	response, err := client.doRaw(ctx, url)
	if err != nil {
		return nil, err
	}
	if !isRateLimitResponse(response) {
		return response, nil
	}

	wait := client.rateLimit.retryAfter(response.Header)
	if wait <= 0 {
		return response, nil
	}
	response.Body.Close()
	client.logger.Info("rate limited, backing off", "duration", wait, "url", url)

	select {
	case <-client.clock.After(wait):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return client.doRaw(ctx, url)
}

func (client *Client) doRaw(ctx context.Context, url string) (*http.Response, error) {
	if err := client.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("github: creating request: %w", err)
	}
	if client.authHeader != "" {
		request.Header.Set("Authorization", client.authHeader)
	}
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", apiVersion)
	request.Header.Set("User-Agent", version.UserAgent())

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("github: GET %s: %w", url, err)
	}
	client.rateLimit.update(response.Header)
	return response, nil
}

// isRateLimitResponse peeks at a 403 body to tell a rate limit from a
// permission failure. The body is buffered back into the response so
// the caller can still read it.
func isRateLimitResponse(response *http.Response) bool {
	switch response.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		if response.Header.Get("X-RateLimit-Remaining") == "0" {
			return true
		}
		body, _ := netutil.ReadResponse(response.Body)
		response.Body.Close()
		response.Body = io.NopCloser(bytes.NewReader(body))
		return isRateLimitMessage(string(body))
	default:
		return false
	}
}

// parseAPIError reads a GitHub error body from response.
func parseAPIError(response *http.Response) *APIError {
	body, _ := netutil.ReadResponse(response.Body)
	apiError := &APIError{StatusCode: response.StatusCode}

	var wire struct {
		Message          string `json:"message"`
		DocumentationURL string `json:"documentation_url"`
	}
	if json.Unmarshal(body, &wire) == nil && wire.Message != "" {
		apiError.Message = wire.Message
		apiError.DocumentationURL = wire.DocumentationURL
	} else {
		apiError.Message = strings.TrimSpace(string(body))
	}
	return apiError
}
