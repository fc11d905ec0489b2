package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit-io/canvas-client/pkg/canvas"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(context.Background(), &canvas.Config{
		BaseURL:     server.URL,
		AccessToken: "test-token",
		Cache:       &canvas.CacheConfig{Type: canvas.CacheTypeNone},
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func TestNewRequiresSubdomainOrBaseURL(t *testing.T) {
	_, err := New(context.Background(), &canvas.Config{AccessToken: "token"})
	require.ErrorIs(t, err, canvas.ErrSubdomainRequired)
}

func TestNewRequiresToken(t *testing.T) {
	t.Setenv(canvas.TokenEnvVar, "")

	_, err := New(context.Background(), &canvas.Config{Subdomain: "myschool"})
	require.ErrorIs(t, err, canvas.ErrTokenRequired)
}

func TestNewTokenFromEnvironment(t *testing.T) {
	t.Setenv(canvas.TokenEnvVar, "env-token")

	client, err := New(context.Background(), &canvas.Config{Subdomain: "myschool"})
	require.NoError(t, err)

	client.Close()
}

func TestNewRejectsBadCacheConfig(t *testing.T) {
	_, err := New(context.Background(), &canvas.Config{
		Subdomain:   "myschool",
		AccessToken: "token",
		Cache:       &canvas.CacheConfig{Type: "redis"},
	})
	require.ErrorIs(t, err, canvas.ErrUnsupportedCache)
}

func TestClientListsCoursesAcrossPages(t *testing.T) {
	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/courses", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rate-Limit-Remaining", "700")

		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`[{"id":2,"name":"Chemistry"}]`))

			return
		}

		w.Header().Set("Link", `<`+server.URL+`/courses?page=2>; rel="next"`)
		_, _ = w.Write([]byte(`[{"id":1,"name":"Biology"}]`))
	})

	server = httptest.NewServer(mux)
	defer server.Close()

	client, err := New(context.Background(), &canvas.Config{
		BaseURL:     server.URL,
		AccessToken: "test-token",
	})
	require.NoError(t, err)
	defer client.Close()

	courses := client.Courses()
	require.NoError(t, courses.Get(context.Background()))
	require.Equal(t, 2, courses.Len())

	var names []string
	for _, n := range courses.Nodes() {
		names = append(names, n.Title())
	}

	assert.Equal(t, []string{"Biology", "Chemistry"}, names)

	remaining, observed := client.Remaining()
	require.True(t, observed)
	assert.InDelta(t, 700, remaining, 0.001)
}

func TestClientCachesSingleGets(t *testing.T) {
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"id":1,"name":"Biology"}`))
	}))
	defer server.Close()

	client, err := New(context.Background(), &canvas.Config{
		BaseURL:     server.URL,
		AccessToken: "test-token",
		Cache:       canvas.DefaultCacheConfig(),
	})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	req := &canvas.Request{Method: http.MethodGet, Path: "/courses/1"}

	_, err = client.Submit(ctx, req)
	require.NoError(t, err)

	_, err = client.Submit(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load(), "the second lookup is served from cache")
}

func TestClientNeverCachesPaginatedResponses(t *testing.T) {
	var hits atomic.Int64

	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/courses", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		if r.URL.Query().Get("page") != "2" {
			w.Header().Set("Link", `<`+server.URL+`/courses?page=2>; rel="next"`)
		}

		_, _ = w.Write([]byte(`[]`))
	})

	server = httptest.NewServer(mux)
	defer server.Close()

	client, err := New(context.Background(), &canvas.Config{
		BaseURL:     server.URL,
		AccessToken: "test-token",
		Cache:       canvas.DefaultCacheConfig(),
	})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	_, err = client.FetchAll(ctx, &canvas.Request{Method: http.MethodGet, Path: "/courses"})
	require.NoError(t, err)

	_, err = client.FetchAll(ctx, &canvas.Request{Method: http.MethodGet, Path: "/courses"})
	require.NoError(t, err)

	assert.Equal(t, int64(4), hits.Load(), "every page of every fetch reaches the server")
}

func TestClientRequestHook(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1}`))
	}))

	var methods []string
	done := make(chan struct{}, 1)

	client.OnRequest(func(method, url string, body interface{}) {
		methods = append(methods, method)
		done <- struct{}{}
	})

	_, err := client.Submit(context.Background(), &canvas.Request{Method: http.MethodGet, Path: "/courses/1"})
	require.NoError(t, err)

	<-done
	assert.Equal(t, []string{"GET"}, methods)
}

func TestClientCourseShell(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/courses/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":42,"name":"History"}`))
	}))

	course := client.Course("42")
	require.NoError(t, course.Get(context.Background()))
	assert.Equal(t, "History", course.Title())
}

func TestClientSubmitAfterClose(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	client.Close()

	_, err := client.Submit(context.Background(), &canvas.Request{Method: http.MethodGet, Path: "/courses/1"})
	require.ErrorIs(t, err, canvas.ErrSchedulerClosed)
}
