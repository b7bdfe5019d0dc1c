package client

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"github.com/tomnomnom/linkheader"
)

// paginate lazily walks the pages starting at first, following Link
// rel="next". Every range over the sequence starts again from first.
func paginate[T any](ctx context.Context, c *Client, first *url.URL, decode func([]byte) ([]T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		next := first
		for next != nil {
			items, following, err := fetchPage(ctx, c, next, decode)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			next = following
		}
	}
}

func fetchPage[T any](ctx context.Context, c *Client, u *url.URL, decode func([]byte) ([]T, error)) ([]T, *url.URL, error) {
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	items, err := decode(resp.body)
	if err != nil {
		return nil, nil, decodeError(err)
	}
	next, err := nextLink(u, resp.header)
	if err != nil {
		return nil, nil, err
	}
	return items, next, nil
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

// nextLink finds the rel="next" target among the Link headers, resolved
// against the request URL. It returns nil on the last page.
func nextLink(base *url.URL, h http.Header) (*url.URL, error) {
	var values []string
	for _, v := range h.Values("Link") {
		values = append(values, escapeTargetCommas(v))
	}
	for _, link := range linkheader.Parse(strings.Join(values, ",")) {
		if !hasRel(link.Rel, "next") {
			continue
		}
		ref, err := url.Parse(link.URL)
		if err != nil {
			return nil, transportError("malformed next link: %v", err)
		}
		return base.ResolveReference(ref), nil
	}
	return nil, nil
}

// escapeTargetCommas percent-encodes commas inside <...> so they are not
// taken for link separators.
func escapeTargetCommas(header string) string {
	var b strings.Builder
	inTarget := false
	for _, r := range header {
		switch {
		case r == '<':
			inTarget = true
		case r == '>':
			inTarget = false
		case r == ',' && inTarget:
			b.WriteString("%2C")
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hasRel(rels, rel string) bool {
	for _, r := range strings.Fields(strings.Trim(rels, `"`)) {
		if strings.EqualFold(r, rel) {
			return true
		}
	}
	return false
}

// cursor extracts the after parameter of a next link.
func cursor(next *url.URL) string {
	if next == nil {
		return ""
	}
	return next.Query().Get("after")
}
