package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit-io/canvas-client/pkg/canvas"
)

func TestClientDoSetsHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "canvas-client/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "extra", r.Header.Get("X-Custom"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")

	resp, err := client.Do(context.Background(), &canvas.Request{
		Method:  http.MethodGet,
		Path:    "/courses/1",
		Headers: map[string]string{"X-Custom": "extra"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":1}`, string(resp.Body))
}

func TestClientDoEncodesBodyAndQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/courses/1", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		course, ok := payload["course"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Biology", course["name"])

		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")

	_, err := client.Do(context.Background(), &canvas.Request{
		Method: http.MethodPut,
		Path:   "/courses/1",
		Query:  url.Values{"per_page": []string{"50"}},
		Body:   map[string]interface{}{"course": map[string]interface{}{"name": "Biology"}},
	})
	require.NoError(t, err)
}

func TestClientDoParsesQuotaHeader(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RateLimitHeader, "642.5")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")

	resp, err := client.Do(context.Background(), &canvas.Request{Method: http.MethodGet, Path: "/courses"})
	require.NoError(t, err)
	require.NotNil(t, resp.Remaining)
	assert.InDelta(t, 642.5, *resp.Remaining, 0.001)
}

func TestClientDoMissingQuotaHeader(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")

	resp, err := client.Do(context.Background(), &canvas.Request{Method: http.MethodGet, Path: "/courses"})
	require.NoError(t, err)
	assert.Nil(t, resp.Remaining)
}

func TestClientDoParsesNextLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		link string
		next string
	}{
		{
			name: "next among relations",
			link: `<https://school.instructure.com/api/v1/courses?page=1>; rel="current",<https://school.instructure.com/api/v1/courses?page=2>; rel="next",<https://school.instructure.com/api/v1/courses?page=9>; rel="last"`,
			next: "https://school.instructure.com/api/v1/courses?page=2",
		},
		{
			name: "no next on terminal page",
			link: `<https://school.instructure.com/api/v1/courses?page=9>; rel="last"`,
			next: "",
		},
		{
			name: "no link header",
			link: "",
			next: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.link != "" {
					w.Header().Set("Link", tt.link)
				}
				_, _ = w.Write([]byte(`[]`))
			}))
			defer server.Close()

			client := NewClient(server.URL, "test-token")

			resp, err := client.Do(context.Background(), &canvas.Request{Method: http.MethodGet, Path: "/courses"})
			require.NoError(t, err)
			assert.Equal(t, tt.next, resp.NextPage)
		})
	}
}

func TestClientDoReturnsResponseForErrorStatuses(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RateLimitHeader, "0")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("403 Forbidden (Rate Limit Exceeded)"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")

	// Error statuses are data at this layer: the quota signal they carry
	// must reach the scheduler.
	resp, err := client.Do(context.Background(), &canvas.Request{Method: http.MethodGet, Path: "/courses"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NotNil(t, resp.Remaining)
	assert.Zero(t, *resp.Remaining)
}

func TestClientDoAbsoluteCursorBypassesBase(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient("https://unused.example.com", "test-token")

	_, err := client.Do(context.Background(), &canvas.Request{
		Method: http.MethodGet,
		Path:   server.URL + "/api/v1/courses",
		Query:  url.Values{"page": []string{"2"}},
	})
	require.NoError(t, err)
}

func TestClientURLFor(t *testing.T) {
	t.Parallel()

	client := NewClient("https://school.instructure.com/api/v1", "test-token")

	got := client.URLFor(&canvas.Request{Method: http.MethodGet, Path: "/courses/1"})
	assert.Equal(t, "https://school.instructure.com/api/v1/courses/1", got)
}

func TestClientOptions(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "edukit/2.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", WithUserAgent("edukit/2.0"))

	_, err := client.Do(context.Background(), &canvas.Request{Method: http.MethodGet, Path: "/courses"})
	require.NoError(t, err)
}
