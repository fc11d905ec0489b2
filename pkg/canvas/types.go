package canvas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Request describes one logical API call before it is scheduled.
// Path is relative to the API base ("/courses/1/modules") unless it is an
// absolute URL, which happens when a pagination cursor is followed.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response is the decoded outcome of one dispatched call.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte

	// Remaining is the server-reported quota, when present.
	Remaining *float64

	// NextPage is the absolute URL of the next page, empty on the last page.
	NextPage string
}

// Submitter hands a single request to the scheduling core and blocks until
// the call resolves or fails terminally.
type Submitter interface {
	Submit(ctx context.Context, req *Request) (*Response, error)
}

// API is the surface the resource tree consumes. FetchAll expands a list
// request into however many page requests the server demands.
type API interface {
	Submitter
	FetchAll(ctx context.Context, req *Request) ([]json.RawMessage, error)
}

// RequestHook observes every dispatched call. It is a fire-and-forget
// side channel for debugging and must not block.
type RequestHook func(method, url string, body interface{})

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// DecodeItems unmarshals raw list items into a concrete slice.
func DecodeItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))

	for _, item := range items {
		var v T

		err := json.Unmarshal(item, &v)
		if err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, nil
}
