// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"net/http"
	"strings"

	"github.com/bureau-foundation/stamp/lib/netutil"
)

// PageIterator walks a paginated list endpoint one page per Next call,
// following the Link rel="next" URL. Not safe for concurrent use.
type PageIterator[T any] struct {
	client  *Client
	nextURL string
}

func list[T any](client *Client, path string) *PageIterator[T] {
	return &PageIterator[T]{client: client, nextURL: client.baseURL + path}
}

// Next returns the next page. It returns nil, nil once every page has
// been read.
func (iterator *PageIterator[T]) Next(ctx context.Context) ([]T, error) {
	if iterator.nextURL == "" {
		return nil, nil
	}

	response, err := iterator.client.send(ctx, iterator.nextURL)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, parseAPIError(response)
	}

	items := []T{}
	if err := netutil.DecodeResponse(response.Body, &items); err != nil {
		return nil, err
	}
	iterator.nextURL = parseLinkNext(response.Header.Get("Link"))
	return items, nil
}

// Collect reads every remaining page.
func (iterator *PageIterator[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T
	for {
		items, err := iterator.Next(ctx)
		if err != nil {
			return all, err
		}
		if items == nil {
			return all, nil
		}
		all = append(all, items...)
	}
}

// parseLinkNext returns the rel="next" URL from an RFC 5988 Link
// header, or "" when there is none:
//
//	<https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkNext(header string) string {
	for _, part := range strings.Split(header, ",") {
		target, params, ok := strings.Cut(strings.TrimSpace(part), ";")
		if !ok || !strings.Contains(params, `rel="next"`) {
			continue
		}
		target = strings.TrimSpace(target)
		if strings.HasPrefix(target, "<") && strings.HasSuffix(target, ">") {
			return target[1 : len(target)-1]
		}
	}
	return ""
}
