package canvas

// Client is the programmatic surface the resource-wrapper layer consumes.
// The generic Submit/FetchAll pair carries every call through the quota-aware
// scheduling core; Courses and Course are the entry points into the resource
// tree.
type Client interface {
	API

	// Courses returns the root collection of courses.
	Courses() *Collection

	// Course returns an identity-only shell for the course; call Get or
	// GetComplete on it to populate.
	Course(id string) *Node

	// OnRequest assigns the fire-and-forget hook invoked once per
	// dispatched call.
	OnRequest(hook RequestHook)

	// Remaining reports the most recently observed server quota and
	// whether any observation has arrived yet.
	Remaining() (float64, bool)

	// Close stops the scheduler; queued calls fail with ErrSchedulerClosed.
	Close()
}
