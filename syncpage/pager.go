// Package syncpage implements the cursor-based incremental-sync protocol
// used for bulk retrieval. Each page carries an opaque server-issued
// cursor for the next call; the pager threads it through without
// interpreting it.
package syncpage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/shillcollin/skymsg/obs"
)

// FetchFunc retrieves one raw page from the given URL and returns the
// payload together with the server's cursor for the next page.
type FetchFunc func(ctx context.Context, rawURL string, params url.Values) (json.RawMessage, string, error)

// Request bundles everything needed to page one resource: where the
// first page lives, how to fetch a page and how to decode one. The pager
// itself does not know what the records are.
type Request[T any] struct {
	// Resource keys the cursor state. Distinct resources never share
	// cursors; callers must serialize access per resource.
	Resource string
	// URL and Params address the first page only; subsequent pages are
	// addressed by the stored cursor.
	URL    string
	Params url.Values
	Fetch  FetchFunc
	Decode func(json.RawMessage) ([]T, error)
}

// Pager holds per-resource cursor state. Not safe for concurrent use.
type Pager struct {
	cursors map[string]string
}

// NewPager creates a pager with no stored cursors.
func NewPager() *Pager {
	return &Pager{cursors: make(map[string]string)}
}

// Cursor returns the stored cursor for a resource, empty before the
// first page.
func (p *Pager) Cursor(resource string) string { return p.cursors[resource] }

// Reset drops the stored cursor so the next call starts from the first
// page again.
func (p *Pager) Reset(resource string) { delete(p.cursors, resource) }

// Page retrieves exactly one page: the first call addresses the request
// URL, later calls the cursor stored from the previous page. The new
// cursor is stored verbatim before decoding. The server never signals
// completion; the caller decides when to stop paging.
func Page[T any](ctx context.Context, p *Pager, req Request[T]) ([]T, error) {
	if req.Resource == "" {
		return nil, fmt.Errorf("page request missing resource key")
	}
	if req.Fetch == nil || req.Decode == nil {
		return nil, fmt.Errorf("page request for %s missing fetch or decode", req.Resource)
	}

	rawURL, params := req.URL, req.Params
	if cursor := p.cursors[req.Resource]; cursor != "" {
		rawURL, params = cursor, nil
	}
	raw, next, err := req.Fetch(ctx, rawURL, params)
	if err != nil {
		return nil, err
	}
	p.cursors[req.Resource] = next
	obs.RecordPage(req.Resource)
	return req.Decode(raw)
}
