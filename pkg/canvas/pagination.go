package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// FetchAll expands a list request into as many page requests as the server
// demands and concatenates the results in server order. Every page goes
// through the submitter, so pagination never bypasses quota gating, and page
// N+1 is only requested after page N has resolved (the cursor is not known
// earlier).
func FetchAll(ctx context.Context, submitter Submitter, req *Request) ([]json.RawMessage, error) {
	var items []json.RawMessage

	current := req

	for {
		resp, err := submitter.Submit(ctx, current)
		if err != nil {
			return nil, err
		}

		var page []json.RawMessage

		err = json.Unmarshal(resp.Body, &page)
		if err != nil {
			return nil, fmt.Errorf("parsing list page: %w", err)
		}

		items = append(items, page...)

		if resp.NextPage == "" {
			return items, nil
		}

		current, err = followUpRequest(req, resp.NextPage)
		if err != nil {
			return nil, err
		}
	}
}

// FetchAllAs fetches every page and decodes the concatenation into a
// concrete slice.
func FetchAllAs[T any](ctx context.Context, submitter Submitter, req *Request) ([]T, error) {
	raw, err := FetchAll(ctx, submitter, req)
	if err != nil {
		return nil, err
	}

	out, err := DecodeItems[T](raw)
	if err != nil {
		return nil, fmt.Errorf("decoding list items: %w", err)
	}

	return out, nil
}

// PageResult carries one page of a streamed fetch.
type PageResult struct {
	Items []json.RawMessage
	Err   error
}

// StreamPages fetches pages sequentially and delivers each one on the
// returned channel as soon as it resolves. The channel is closed after the
// terminal page or the first error.
func StreamPages(ctx context.Context, submitter Submitter, req *Request) <-chan PageResult {
	results := make(chan PageResult)

	go func() {
		defer close(results)

		current := req

		for {
			resp, err := submitter.Submit(ctx, current)
			if err != nil {
				results <- PageResult{Err: err}

				return
			}

			var page []json.RawMessage

			err = json.Unmarshal(resp.Body, &page)
			if err != nil {
				results <- PageResult{Err: fmt.Errorf("parsing list page: %w", err)}

				return
			}

			select {
			case results <- PageResult{Items: page}:
			case <-ctx.Done():
				return
			}

			if resp.NextPage == "" {
				return
			}

			current, err = followUpRequest(req, resp.NextPage)
			if err != nil {
				results <- PageResult{Err: err}

				return
			}
		}
	}()

	return results
}

// followUpRequest builds the next-page request from the server-supplied
// cursor URL, carrying forward the original headers. The cursor already
// encodes the query parameters of the original request plus the page
// position, so the query is taken from the cursor verbatim.
func followUpRequest(initial *Request, nextPage string) (*Request, error) {
	parsed, err := url.Parse(nextPage)
	if err != nil {
		return nil, fmt.Errorf("parsing next page cursor %q: %w", nextPage, err)
	}

	query := parsed.Query()
	parsed.RawQuery = ""

	return &Request{
		Method:  initial.Method,
		Path:    parsed.String(),
		Query:   query,
		Headers: initial.Headers,
	}, nil
}
