package canvas_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edukit-io/canvas-client/pkg/canvas"
)

// fakeAPI scripts responses keyed by "METHOD path" and records every call.
// Unscripted GETs of a collection path return an empty list; everything
// else returns an empty object.
type fakeAPI struct {
	mu        sync.Mutex
	responses map[string]*canvas.Response
	errs      map[string]error
	calls     []string
	bodies    map[string]interface{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		responses: make(map[string]*canvas.Response),
		errs:      make(map[string]error),
		bodies:    make(map[string]interface{}),
	}
}

func (f *fakeAPI) respond(method, path, body string) {
	f.responses[method+" "+path] = &canvas.Response{StatusCode: http.StatusOK, Body: []byte(body)}
}

func (f *fakeAPI) failWith(method, path string, err error) {
	f.errs[method+" "+path] = err
}

func (f *fakeAPI) Submit(ctx context.Context, req *canvas.Request) (*canvas.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := req.Method + " " + req.Path
	f.calls = append(f.calls, key)
	f.bodies[key] = req.Body

	if err, ok := f.errs[key]; ok {
		return nil, err
	}

	if resp, ok := f.responses[key]; ok {
		return resp, nil
	}

	if req.Method == http.MethodGet {
		return &canvas.Response{StatusCode: http.StatusOK, Body: []byte(`[]`)}, nil
	}

	return &canvas.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
}

func (f *fakeAPI) FetchAll(ctx context.Context, req *canvas.Request) ([]json.RawMessage, error) {
	return canvas.FetchAll(ctx, f, req)
}

func (f *fakeAPI) callsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string

	for _, call := range f.calls {
		if strings.HasPrefix(call, prefix) {
			out = append(out, call)
		}
	}

	return out
}

func (f *fakeAPI) lastBody(method, path string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.bodies[method+" "+path]
}

func courseCollection(t *testing.T, api canvas.API) *canvas.Collection {
	t.Helper()

	courses, err := canvas.NewRootCollection(api, "course")
	require.NoError(t, err)

	return courses
}

func TestNodeShellIsDirty(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	course := courseCollection(t, api).Shell("101")

	assert.True(t, course.Dirty(), "a node that was never fetched has nothing to be clean against")
}

func TestNodeGetPopulatesAndCleans(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(http.MethodGet, "/courses/101", `{"id":101,"name":"Biology","course_code":"BIO-1"}`)

	course := courseCollection(t, api).Shell("101")
	require.NoError(t, course.Get(context.Background()))

	assert.False(t, course.Dirty())
	assert.Equal(t, "101", course.ID())
	assert.Equal(t, "Biology", course.Title())
	assert.Equal(t, "BIO-1", course.Field("course_code"))
}

func TestNodeDirtyLifecycle(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(http.MethodGet, "/courses/101", `{"id":101,"name":"Biology"}`)

	course := courseCollection(t, api).Shell("101")
	require.NoError(t, course.Get(context.Background()))

	course.SetTitle("Advanced Biology")
	assert.True(t, course.Dirty())

	// Reverting the edit restores cleanliness.
	course.SetTitle("Biology")
	assert.False(t, course.Dirty())
}

func TestNodeUpdateSendsOnePartialUpdate(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(http.MethodGet, "/courses/101", `{"id":101,"name":"Biology"}`)

	course := courseCollection(t, api).Shell("101")
	require.NoError(t, course.Get(context.Background()))

	course.SetTitle("Advanced Biology")
	require.NoError(t, course.Update(context.Background()))

	puts := api.callsWithPrefix("PUT ")
	require.Equal(t, []string{"PUT /courses/101"}, puts)

	// The payload carries the full field set under the wrapper key.
	body, ok := api.lastBody(http.MethodPut, "/courses/101").(map[string]interface{})
	require.True(t, ok)

	wrapped, ok := body["course"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Advanced Biology", wrapped["name"])

	assert.False(t, course.Dirty(), "a successful update re-baselines the node")
}

func TestNodeUpdateWhenCleanIsNoOp(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(http.MethodGet, "/courses/101", `{"id":101,"name":"Biology"}`)

	course := courseCollection(t, api).Shell("101")
	require.NoError(t, course.Get(context.Background()))

	require.NoError(t, course.Update(context.Background()))

	assert.Empty(t, api.callsWithPrefix("PUT "))
	assert.Empty(t, api.callsWithPrefix("POST "))
}

func TestNodeFirstSaveCreates(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(http.MethodPost, "/courses", `{"id":202,"name":"Chemistry"}`)

	course := courseCollection(t, api).Shell("")
	course.SetTitle("Chemistry")

	require.NoError(t, course.Update(context.Background()))

	require.Equal(t, []string{"POST /courses"}, api.callsWithPrefix("POST "))
	assert.Empty(t, api.callsWithPrefix("PUT "))

	// The response is authoritative for the new identity and baseline.
	assert.Equal(t, "202", course.ID())
	assert.False(t, course.Dirty())
}

func TestNodeUpdateFailureKeepsDirtyState(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("server unavailable")

	api := newFakeAPI()
	api.respond(http.MethodGet, "/courses/101", `{"id":101,"name":"Biology"}`)
	api.failWith(http.MethodPut, "/courses/101", wantErr)

	course := courseCollection(t, api).Shell("101")
	require.NoError(t, course.Get(context.Background()))

	course.SetTitle("Advanced Biology")

	err := course.Update(context.Background())
	require.ErrorIs(t, err, wantErr)

	// The edit survives, so a later Update retries it.
	assert.True(t, course.Dirty())
	assert.Equal(t, "Advanced Biology", course.Title())
}

func TestNodeGetDiscardsLocalEdits(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(http.MethodGet, "/courses/101", `{"id":101,"name":"Biology"}`)

	course := courseCollection(t, api).Shell("101")
	require.NoError(t, course.Get(context.Background()))

	course.SetTitle("Draft Rename")
	require.NoError(t, course.Get(context.Background()))

	assert.Equal(t, "Biology", course.Title())
	assert.False(t, course.Dirty())
}

func TestNodeChildrenOnlyForDeclaredKinds(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	course := courseCollection(t, api).Shell("101")

	modules, ok := course.Children("module")
	require.True(t, ok)
	assert.Equal(t, "/courses/101/modules", modules.Path())

	_, ok = course.Children("course")
	assert.False(t, ok, "courses do not nest under courses")
}

func TestNodeUpdateCascadesIntoChildren(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(http.MethodGet, "/courses/101", `{"id":101,"name":"Biology"}`)
	api.respond(http.MethodGet, "/courses/101/modules", `[{"id":7,"name":"Week 1"},{"id":8,"name":"Week 2"}]`)

	course := courseCollection(t, api).Shell("101")
	require.NoError(t, course.Get(context.Background()))

	modules, ok := course.Children("module")
	require.True(t, ok)
	require.NoError(t, modules.Get(context.Background()))

	week1, ok := modules.Node("7")
	require.True(t, ok)
	week1.SetTitle("Orientation Week")

	require.NoError(t, course.Update(context.Background()))

	// Only the one dirty descendant produces a write.
	assert.Equal(t, []string{"PUT /courses/101/modules/7"}, api.callsWithPrefix("PUT "))

	assert.False(t, week1.Dirty())
}

func TestNodeDeepFieldChangeIsDirty(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(http.MethodGet, "/courses/101", `{"id":101,"name":"Biology","settings":{"visibility":"public"}}`)

	course := courseCollection(t, api).Shell("101")
	require.NoError(t, course.Get(context.Background()))

	settings, ok := course.Field("settings").(map[string]interface{})
	require.True(t, ok)

	// Mutating nested state must not alias the baseline snapshot.
	settings["visibility"] = "private"

	assert.True(t, course.Dirty())
}

func TestNodeDeleteDelegatesToCollection(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(http.MethodGet, "/courses/101", `{"id":101}`)

	course := courseCollection(t, api).Shell("101")

	require.NoError(t, course.Delete(context.Background()))
	assert.Equal(t, []string{"DELETE /courses/101"}, api.callsWithPrefix("DELETE "))
}

func TestNodePageUsesSlugIdentifier(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.respond(http.MethodGet, "/courses/101", `{"id":101,"name":"Biology"}`)
	api.respond(http.MethodGet, "/courses/101/pages", `[{"url":"syllabus","title":"Syllabus","body":"<p>hi</p>"}]`)

	course := courseCollection(t, api).Shell("101")
	require.NoError(t, course.Get(context.Background()))

	pages, ok := course.Children("page")
	require.True(t, ok)
	require.NoError(t, pages.Get(context.Background()))

	page, ok := pages.Node("syllabus")
	require.True(t, ok)
	assert.Equal(t, "Syllabus", page.Title())
	assert.Equal(t, "<p>hi</p>", page.HTML())

	path, err := page.Path()
	require.NoError(t, err)
	assert.Equal(t, "/courses/101/pages/syllabus", path)
}
