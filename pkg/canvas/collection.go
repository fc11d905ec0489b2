package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/edukit-io/canvas-client/internal/constants"
)

// Collection is an ordered, identifier-unique group of nodes of one kind,
// owned by a parent node or the client root. It owns fetch, create and
// delete for its members and cascades Update across them.
type Collection struct {
	kind     *Kind
	api      API
	parent   *Node
	basePath string
	nodes    []*Node
}

// NewRootCollection builds a top-level collection for the named kind,
// rooted directly under the API base.
func NewRootCollection(api API, kindName string) (*Collection, error) {
	kind, ok := KindByName(kindName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kindName)
	}

	return &Collection{
		kind:     kind,
		api:      api,
		basePath: "/" + kind.Endpoint,
	}, nil
}

func newChildCollection(api API, kind *Kind, parent *Node) *Collection {
	return &Collection{
		kind:   kind,
		api:    api,
		parent: parent,
	}
}

// Kind returns the collection's kind name.
func (c *Collection) Kind() string {
	return c.kind.Name
}

// Parent returns the owning node, nil for root collections.
func (c *Collection) Parent() *Node {
	return c.parent
}

// Path returns the list endpoint of this collection.
func (c *Collection) Path() string {
	if c.parent == nil {
		return c.basePath
	}

	parentPath, err := c.parent.Path()
	if err != nil {
		// A child collection only exists once its parent has an
		// identity, so this cannot normally happen; fall back to the
		// bare endpoint to keep the failure visible in the request URL.
		return "/" + c.kind.Endpoint
	}

	return parentPath + "/" + c.kind.Endpoint
}

// Len returns the number of nodes currently held.
func (c *Collection) Len() int {
	return len(c.nodes)
}

// Nodes returns the nodes in order. The slice is a copy; the nodes are not.
func (c *Collection) Nodes() []*Node {
	out := make([]*Node, len(c.nodes))
	copy(out, c.nodes)

	return out
}

// Node returns the member with the given identifier.
func (c *Collection) Node(id string) (*Node, bool) {
	for _, n := range c.nodes {
		if n.id == id {
			return n, true
		}
	}

	return nil, false
}

// Shell returns a node of this collection's kind that carries only an
// identity. It is not inserted; it is a placeholder awaiting its first Get.
func (c *Collection) Shell(id string) *Node {
	n := newNode(c.api, c.kind, c)
	n.id = id

	return n
}

// Get fetches the full list and replaces the collection's contents. This is
// a resync: previous nodes, including any local edits in them, are
// discarded.
func (c *Collection) Get(ctx context.Context) error {
	items, err := c.api.FetchAll(ctx, &Request{Method: "GET", Path: c.Path()})
	if err != nil {
		return fmt.Errorf("listing %s: %w", c.kind.Endpoint, err)
	}

	nodes := make([]*Node, 0, len(items))

	for _, item := range items {
		n := newNode(c.api, c.kind, c)

		err = n.populate(item)
		if err != nil {
			return fmt.Errorf("parsing %s list item: %w", c.kind.Name, err)
		}

		nodes = append(nodes, n)
	}

	c.nodes = nodes

	return nil
}

// GetComplete fetches the list and then recursively populates every
// member's child collections.
func (c *Collection) GetComplete(ctx context.Context) error {
	err := c.Get(ctx)
	if err != nil {
		return err
	}

	if len(c.kind.Children) == 0 {
		return nil
	}

	var (
		group errgroup.Group
		mu    sync.Mutex
		errs  []error
	)

	group.SetLimit(constants.DefaultCascadeConcurrency)

	for _, n := range c.nodes {
		group.Go(func() error {
			err := n.getChildrenComplete(ctx)
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

// GetOne fetches a single member by identifier and inserts it into the
// collection, replacing an existing node with the same identifier in place.
func (c *Collection) GetOne(ctx context.Context, id string) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingIdentifier, c.kind.Name)
	}

	resp, err := c.api.Submit(ctx, &Request{Method: "GET", Path: c.Path() + "/" + id})
	if err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", c.kind.Name, id, err)
	}

	n := newNode(c.api, c.kind, c)

	err = n.populate(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", c.kind.Name, err)
	}

	c.insert(n)

	return n, nil
}

// GetOneComplete fetches a single member and its full subtree.
func (c *Collection) GetOneComplete(ctx context.Context, id string) (*Node, error) {
	n, err := c.GetOne(ctx, id)
	if err != nil {
		return nil, err
	}

	err = n.getChildrenComplete(ctx)
	if err != nil {
		return n, err
	}

	return n, nil
}

// Create issues a create call with the given fields, appends the resulting
// node and returns it. The node is clean immediately after creation.
func (c *Collection) Create(ctx context.Context, data map[string]interface{}) (*Node, error) {
	payload := interface{}(data)
	if c.kind.WrapperKey != "" {
		payload = map[string]interface{}{c.kind.WrapperKey: data}
	}

	resp, err := c.api.Submit(ctx, &Request{
		Method: "POST",
		Path:   c.Path(),
		Body:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", c.kind.Name, err)
	}

	n := newNode(c.api, c.kind, c)

	err = n.populate(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing created %s: %w", c.kind.Name, err)
	}

	c.insert(n)

	return n, nil
}

// Update cascades update across every member. Members that fail keep their
// dirty state, so a re-invocation retries only the remainder.
func (c *Collection) Update(ctx context.Context) error {
	if len(c.nodes) == 0 {
		return nil
	}

	var (
		group errgroup.Group
		mu    sync.Mutex
		errs  []error
	)

	group.SetLimit(constants.DefaultCascadeConcurrency)

	for _, n := range c.nodes {
		group.Go(func() error {
			err := n.Update(ctx)
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

// Delete removes the identified member remotely, then locally. Local state
// is untouched when the remote delete fails.
func (c *Collection) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s", ErrMissingIdentifier, c.kind.Name)
	}

	_, err := c.api.Submit(ctx, &Request{Method: "DELETE", Path: c.Path() + "/" + id})
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", c.kind.Name, id, err)
	}

	for i, n := range c.nodes {
		if n.id == id {
			c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)

			break
		}
	}

	return nil
}

// insert appends a node, replacing an existing member with the same
// identifier in place to preserve order.
func (c *Collection) insert(n *Node) {
	for i, existing := range c.nodes {
		if existing.id == n.id {
			c.nodes[i] = n

			return
		}
	}

	c.nodes = append(c.nodes, n)
}

// MarshalJSON renders the collection as the ordered array of member field
// sets, which keeps debug dumps compact.
func (c *Collection) MarshalJSON() ([]byte, error) {
	fields := make([]map[string]interface{}, len(c.nodes))
	for i, n := range c.nodes {
		fields[i] = n.fields
	}

	return json.Marshal(fields)
}
