package writer

// Result is the outcome of one top-level write: the exact,
// order-independent diff of what changed, plus any non-fatal diagnostics.
// Valid only for the duration of the call that produced it in the sense
// that later writes do not update it.
type Result struct {
	// Token is the write-session token stamped on this write.
	Token string

	// Created holds the ids that transitioned from non-EXISTENT to
	// EXISTENT during this write.
	Created map[string]bool

	// Updated holds the ids whose stored fields changed value during
	// this write, excluding newly created ids.
	Updated map[string]bool

	// Diagnostics lists the non-fatal problems encountered, one per
	// occurrence. The write succeeded despite them.
	Diagnostics []Diagnostic
}

// Diagnostic is a non-fatal problem observed during a write, currently
// only the inability to determine a type name for a server-identified
// record.
type Diagnostic struct {
	// RecordID names the affected record.
	RecordID string `json:"record_id"`

	// Message describes the problem.
	Message string `json:"message"`
}

// changeTracker accumulates the created/updated sets for one write call.
// Fed exclusively by record-level decisions: a record with many changed
// fields is marked once. A fresh tracker is used per write.
type changeTracker struct {
	created map[string]bool
	updated map[string]bool
}

func newChangeTracker() *changeTracker {
	return &changeTracker{
		created: make(map[string]bool),
		updated: make(map[string]bool),
	}
}

// recordCreate marks id as created this write. A created record is never
// also reported updated.
func (t *changeTracker) recordCreate(id string) {
	t.created[id] = true
	delete(t.updated, id)
}

// recordUpdate marks id as updated, unless the record was created this
// write.
func (t *changeTracker) recordUpdate(id string) {
	if t.created[id] {
		return
	}
	t.updated[id] = true
}
