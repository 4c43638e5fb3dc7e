package bidspath

// Entry is one loaded recording file: its root-relative path, parsed
// components, and a copy of the owning participant's metadata row taken
// at load time. Entries are immutable after load; identity for querying
// is the path string.
type Entry struct {
	Path string
	Components
	Metadata map[string]string
}

// NewEntry constructs an entry, defensively copying the metadata row so
// concurrent loaders never share a map.
func NewEntry(path string, c Components, metadata map[string]string) *Entry {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	return &Entry{Path: path, Components: c, Metadata: meta}
}

func (e *Entry) String() string {
	return e.Path
}
