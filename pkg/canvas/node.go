package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/edukit-io/canvas-client/internal/constants"
)

// Node is one remote entity: an identity, a mutable field snapshot, the
// last-synchronized snapshot, and zero or more child collections. The
// parent reference is navigational only; ownership always points downward,
// keeping the resource graph a strict tree.
type Node struct {
	kind     *Kind
	api      API
	parent   *Collection
	id       string
	fields   map[string]interface{}
	original map[string]interface{}
	children map[string]*Collection
}

func newNode(api API, kind *Kind, parent *Collection) *Node {
	return &Node{
		kind:     kind,
		api:      api,
		parent:   parent,
		fields:   make(map[string]interface{}),
		children: make(map[string]*Collection),
	}
}

// Kind returns the node's kind name.
func (n *Node) Kind() string {
	return n.kind.Name
}

// ID returns the server-assigned identifier, empty until the node has been
// fetched or created.
func (n *Node) ID() string {
	return n.id
}

// Parent returns the owning collection, nil for detached shells.
func (n *Node) Parent() *Collection {
	return n.parent
}

// Path returns the API path of this node.
func (n *Node) Path() (string, error) {
	if n.id == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingIdentifier, n.kind.Name)
	}

	if n.parent == nil {
		return "", fmt.Errorf("%w: detached %s node", ErrNotInCollection, n.kind.Name)
	}

	return n.parent.Path() + "/" + n.id, nil
}

// Field returns the named field, or nil when absent. Reading a field on a
// shell that has not been fetched is not an error; it simply yields nil.
func (n *Node) Field(name string) interface{} {
	return n.fields[name]
}

// SetField assigns a field value, marking the node dirty if the value
// differs from the last-synchronized snapshot.
func (n *Node) SetField(name string, value interface{}) {
	n.fields[name] = value
}

// Fields returns a shallow copy of the current field set.
func (n *Node) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(n.fields))
	for k, v := range n.fields {
		out[k] = v
	}

	return out
}

// Title returns the kind-mapped title field.
func (n *Node) Title() string {
	return n.stringField(n.kind.TitleField)
}

// SetTitle assigns the kind-mapped title field.
func (n *Node) SetTitle(title string) {
	if n.kind.TitleField != "" {
		n.fields[n.kind.TitleField] = title
	}
}

// HTML returns the kind-mapped HTML body field.
func (n *Node) HTML() string {
	return n.stringField(n.kind.HTMLField)
}

// SetHTML assigns the kind-mapped HTML body field.
func (n *Node) SetHTML(html string) {
	if n.kind.HTMLField != "" {
		n.fields[n.kind.HTMLField] = html
	}
}

// URL returns the kind-mapped URL field.
func (n *Node) URL() string {
	return n.stringField(n.kind.URLField)
}

func (n *Node) stringField(name string) string {
	if name == "" {
		return ""
	}

	if s, ok := n.fields[name].(string); ok {
		return s
	}

	return ""
}

// Dirty reports whether the in-memory fields have diverged from the last
// synchronized snapshot. A node that was never fetched or created is
// considered entirely dirty.
func (n *Node) Dirty() bool {
	if n.original == nil {
		return true
	}

	if len(n.fields) != len(n.original) {
		return true
	}

	for key, value := range n.fields {
		origValue, ok := n.original[key]
		if !ok || !reflect.DeepEqual(value, origValue) {
			return true
		}
	}

	return false
}

// Children returns the named child collection, creating it lazily when the
// kind declares it.
func (n *Node) Children(kindName string) (*Collection, bool) {
	if col, ok := n.children[kindName]; ok {
		return col, true
	}

	for _, name := range n.kind.Children {
		if name == kindName {
			childKind, ok := KindByName(name)
			if !ok {
				return nil, false
			}

			col := newChildCollection(n.api, childKind, n)
			n.children[kindName] = col

			return col, true
		}
	}

	return nil, false
}

// ensureChildren instantiates every declared child collection.
func (n *Node) ensureChildren() {
	for _, name := range n.kind.Children {
		_, _ = n.Children(name)
	}
}

// Get fetches the node's server representation. On success both the field
// snapshot and the synchronization baseline are replaced, so any pending
// local edits are discarded.
func (n *Node) Get(ctx context.Context) error {
	path, err := n.Path()
	if err != nil {
		return err
	}

	resp, err := n.api.Submit(ctx, &Request{Method: "GET", Path: path})
	if err != nil {
		return fmt.Errorf("getting %s %s: %w", n.kind.Name, n.id, err)
	}

	err = n.populate(resp.Body)
	if err != nil {
		return fmt.Errorf("parsing %s response: %w", n.kind.Name, err)
	}

	return nil
}

// GetComplete fetches the node and then recursively populates every
// declared child collection.
func (n *Node) GetComplete(ctx context.Context) error {
	err := n.Get(ctx)
	if err != nil {
		return err
	}

	return n.getChildrenComplete(ctx)
}

// getChildrenComplete populates all child collections, recursing into
// grandchildren. Sibling collections are fetched concurrently; the
// scheduler's gate bounds actual request concurrency.
func (n *Node) getChildrenComplete(ctx context.Context) error {
	if len(n.kind.Children) == 0 {
		return nil
	}

	n.ensureChildren()

	var (
		group errgroup.Group
		mu    sync.Mutex
		errs  []error
	)

	group.SetLimit(constants.DefaultCascadeConcurrency)

	for _, col := range n.children {
		group.Go(func() error {
			err := col.GetComplete(ctx)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}

			return nil
		})
	}

	_ = group.Wait()

	return errors.Join(errs...)
}

// Update reconciles the node and its subtree with the server. A clean node
// issues no call for itself; a dirty node that was never created routes
// through create semantics; any other dirty node sends its full current
// field set in one partial-update call. Child collections are then updated
// regardless, so a single top-level Update pushes an arbitrary set of
// nested edits. Nodes that fail stay dirty, so re-invoking Update retries
// only the remainder.
func (n *Node) Update(ctx context.Context) error {
	err := n.updateSelf(ctx)
	if err != nil {
		return err
	}

	return n.updateChildren(ctx)
}

func (n *Node) updateSelf(ctx context.Context) error {
	if !n.Dirty() {
		return nil
	}

	if n.original == nil && n.id == "" {
		return n.createSelf(ctx)
	}

	path, err := n.Path()
	if err != nil {
		return err
	}

	_, err = n.api.Submit(ctx, &Request{
		Method: "PUT",
		Path:   path,
		Body:   n.wrapPayload(),
	})
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", n.kind.Name, n.id, err)
	}

	n.original = deepCopyFields(n.fields)

	return nil
}

// createSelf performs first-save-is-create for a node that has no server
// identity yet. The response is authoritative for the new snapshot.
func (n *Node) createSelf(ctx context.Context) error {
	if n.parent == nil {
		return fmt.Errorf("%w: cannot create detached %s node", ErrNotInCollection, n.kind.Name)
	}

	resp, err := n.api.Submit(ctx, &Request{
		Method: "POST",
		Path:   n.parent.Path(),
		Body:   n.wrapPayload(),
	})
	if err != nil {
		return fmt.Errorf("creating %s: %w", n.kind.Name, err)
	}

	err = n.populate(resp.Body)
	if err != nil {
		return fmt.Errorf("parsing created %s: %w", n.kind.Name, err)
	}

	return nil
}

func (n *Node) updateChildren(ctx context.Context) error {
	if len(n.children) == 0 {
		return nil
	}

	var (
		group errgroup.Group
		mu    sync.Mutex
		errs  []error
	)

	group.SetLimit(constants.DefaultCascadeConcurrency)

	for _, col := range n.children {
		group.Go(func() error {
			err := col.Update(ctx)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}

			return nil
		})
	}

	_ = group.Wait()

	return errors.Join(errs...)
}

// Delete removes the node remotely via its owning collection.
func (n *Node) Delete(ctx context.Context) error {
	if n.parent == nil {
		return fmt.Errorf("%w: cannot delete detached %s node", ErrNotInCollection, n.kind.Name)
	}

	if n.id == "" {
		return fmt.Errorf("%w: %s", ErrMissingIdentifier, n.kind.Name)
	}

	return n.parent.Delete(ctx, n.id)
}

// wrapPayload builds the write payload, wrapping the field set under the
// kind's wrapper key when the API expects one.
func (n *Node) wrapPayload() interface{} {
	if n.kind.WrapperKey == "" {
		return n.fields
	}

	return map[string]interface{}{n.kind.WrapperKey: n.fields}
}

// populate replaces the field snapshot and synchronization baseline with a
// server representation and instantiates declared child collections.
func (n *Node) populate(body []byte) error {
	var fields map[string]interface{}

	err := json.Unmarshal(body, &fields)
	if err != nil {
		return err
	}

	n.fields = fields
	n.original = deepCopyFields(fields)
	n.id = identifierString(fields[n.kind.IDField])
	n.ensureChildren()

	return nil
}

// identifierString renders a JSON identifier value as a path segment.
// Numeric IDs arrive as float64 from encoding/json; page kinds use string
// slugs.
func identifierString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// deepCopyFields copies a decoded JSON object so later field mutations
// cannot alias the synchronization baseline.
func deepCopyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = deepCopyValue(v)
	}

	return out
}

func deepCopyValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return deepCopyFields(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = deepCopyValue(item)
		}

		return out
	default:
		return v
	}
}
