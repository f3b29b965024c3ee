package content

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a publication, document, or node id does not
// resolve. Render and context lookups report it as an explicit miss rather
// than a failure, since callers routinely probe ids that may have been
// deleted.
var ErrNotFound = errors.New("not found")

// StructuralError reports a malformed tree handed to the store: a parent in a
// different document, a duplicate sibling sequence number, a cycle, or a
// relation across documents. It is detected at write time, before the row can
// corrupt the store.
type StructuralError struct {
	NodeID string
	Reason string
}

func (e *StructuralError) Error() string {
	if e.NodeID == "" {
		return "structural error: " + e.Reason
	}
	return fmt.Sprintf("structural error: node %s: %s", e.NodeID, e.Reason)
}

// ValidationError reports a payload that violates the description/caption
// rule at commit time. The whole transaction is rolled back; nothing from the
// batch persists.
type ValidationError struct {
	NodeID  string
	TagName TagName
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: node %s (tag %q): %s", e.NodeID, string(e.TagName), e.Reason)
}
