package collab

// Document holds the authoritative content and version counter for one
// room. It is owned by that room's actor goroutine and never shared, so it
// needs no locking; Snapshot reads are consistent by construction.
type Document struct {
	content string
	version uint64
}

// NewDocument restores a document from its persisted state.
func NewDocument(content string, version uint64) *Document {
	return &Document{content: content, version: version}
}

// Snapshot returns the current content and version.
func (d *Document) Snapshot() (string, uint64) {
	return d.content, d.version
}

// Version returns the current version.
func (d *Document) Version() uint64 {
	return d.version
}

// applyAccepted commits new content and returns the new version. It is
// reachable only through the resolver's accept path; nothing else may
// mutate the document.
func (d *Document) applyAccepted(content string) uint64 {
	d.content = content
	d.version++
	return d.version
}
