package interfaces

// AnnotationStore holds the per-session prepared-item checklist. Entries
// are UI-only: they are merged into board cards at render time and never
// appear in any payload sent to the backend. Entries for orders that left
// the active set are not purged; the store is bounded by session lifetime.
type AnnotationStore interface {
	// Toggle flips the mark for one item and returns the new state.
	Toggle(sessionID, orderID, itemID string) (bool, error)
	IsMarked(sessionID, orderID, itemID string) (bool, error)
	// Marked returns all marked item ids for one order.
	Marked(sessionID, orderID string) ([]string, error)
	// EndSession discards everything the session marked.
	EndSession(sessionID string) error
	Close() error
}
