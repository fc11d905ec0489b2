package canvas

// Kind is the static per-resource-kind configuration consulted by the
// generic Node and Collection logic. Field names differ between kinds
// (a course's title lives in "name", a page's in "title"); mapping them
// here avoids a subtype per kind.
type Kind struct {
	// Name is the registry key.
	Name string

	// Endpoint is the path segment for collections of this kind,
	// appended to the parent node's path.
	Endpoint string

	// IDField is the field carrying the server-assigned identifier.
	IDField string

	// TitleField, HTMLField and URLField name the fields behind the
	// generic accessors; empty means the kind has no such field.
	TitleField string
	HTMLField  string
	URLField   string

	// WrapperKey wraps create/update payloads ({"course": {...}});
	// empty sends the fields bare.
	WrapperKey string

	// Children lists the kind names of nested collections.
	Children []string
}

var kinds = map[string]*Kind{
	"course": {
		Name:       "course",
		Endpoint:   "courses",
		IDField:    "id",
		TitleField: "name",
		WrapperKey: "course",
		Children:   []string{"module", "assignment", "page", "quiz", "discussion_topic"},
	},
	"module": {
		Name:       "module",
		Endpoint:   "modules",
		IDField:    "id",
		TitleField: "name",
		WrapperKey: "module",
		Children:   []string{"module_item"},
	},
	"module_item": {
		Name:       "module_item",
		Endpoint:   "items",
		IDField:    "id",
		TitleField: "title",
		URLField:   "external_url",
		WrapperKey: "module_item",
	},
	"assignment": {
		Name:       "assignment",
		Endpoint:   "assignments",
		IDField:    "id",
		TitleField: "name",
		HTMLField:  "description",
		WrapperKey: "assignment",
	},
	"page": {
		Name:       "page",
		Endpoint:   "pages",
		IDField:    "url",
		TitleField: "title",
		HTMLField:  "body",
		URLField:   "html_url",
		WrapperKey: "wiki_page",
	},
	"quiz": {
		Name:       "quiz",
		Endpoint:   "quizzes",
		IDField:    "id",
		TitleField: "title",
		HTMLField:  "description",
		WrapperKey: "quiz",
	},
	"discussion_topic": {
		Name:       "discussion_topic",
		Endpoint:   "discussion_topics",
		IDField:    "id",
		TitleField: "title",
		HTMLField:  "message",
	},
}

// KindByName looks up a kind in the registry.
func KindByName(name string) (*Kind, bool) {
	k, ok := kinds[name]

	return k, ok
}

// RegisteredKinds returns the names of all registered kinds.
func RegisteredKinds() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}

	return names
}
