package research

import (
	"errors"
	"fmt"
)

// Recoverable failures. A call that returns one of these has not mutated
// the graph.
var (
	ErrInvalidState          = errors.New("research: node not in required state")
	ErrInsufficientResources = errors.New("research: insufficient resource points")
	ErrCapacityExceeded      = errors.New("research: engineer capacity exceeded")
	ErrUnknownNode           = errors.New("research: unknown node")
	ErrNotActive             = fmt.Errorf("%w: project not active", ErrInvalidState)
	ErrNegativeEngineers     = errors.New("research: engineer count must not be negative")
)

// DefinitionError reports a malformed tree definition.
type DefinitionError struct {
	NodeID string
	Reason string
}

func (e *DefinitionError) Error() string {
	if e.NodeID == "" {
		return "research definition: " + e.Reason
	}
	return fmt.Sprintf("research definition %q: %s", e.NodeID, e.Reason)
}
