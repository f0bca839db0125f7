package pipeline

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	directory "roster/contracts/directory"
	id "roster/pkg/domain"
)

// Pager walks a cursor-paginated collection one page at a time. It is a
// forward-only iterator; to start over, create a new Pager. A failed Next
// leaves the cursor where it was, so the same page can be retried.
type Pager struct {
	client    *Client
	sessionID id.SessionID
	path      string
	cursor    string
	done      bool
}

// Pager returns an iterator over the collection at path.
func (c *Client) Pager(sessionID id.SessionID, path string) *Pager {
	return &Pager{client: c, sessionID: sessionID, path: path}
}

// Next fetches the next page through the full retry policy. It returns the
// page's raw items and true while pages remain, and (nil, false, nil) once
// the listing is exhausted.
func (p *Pager) Next(ctx context.Context) ([]directory.RawItem, bool, error) {
	if p.done {
		return nil, false, nil
	}

	target := p.path
	if p.cursor != "" {
		sep := "?"
		if strings.Contains(p.path, "?") {
			sep = "&"
		}
		target = p.path + sep + "cursor=" + url.QueryEscape(p.cursor)
	}

	resp, err := p.client.Do(ctx, p.sessionID, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, err
	}

	var page directory.ListPage
	if err := resp.Decode(&page); err != nil {
		return nil, false, err
	}

	p.cursor = page.NextCursor
	if p.cursor == "" {
		p.done = true
	}
	return page.Items, true, nil
}
