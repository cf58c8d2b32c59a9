package store

import "fmt"

// ValidationError reports input that cannot be admitted into the store:
// a missing required field, or an inverted time span on a timed event.
type ValidationError struct {
	ID     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store: invalid event %q: %s %s", e.ID, e.Field, e.Reason)
	}
	return fmt.Sprintf("store: invalid event: %s %s", e.Field, e.Reason)
}

// NotFoundError reports a lookup or removal of an unknown event id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: event %q not found", e.ID)
}

// DuplicateIDError reports an add of an id that already exists while the
// store's duplicate policy is DuplicateReject.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("store: event %q already exists", e.ID)
}
