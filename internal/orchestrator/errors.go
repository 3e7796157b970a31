package orchestrator

import "errors"

// Registry error taxonomy. Both are returned synchronously to the caller
// and never recovered internally. Out-of-range numeric inputs are not
// errors; the policy there is clamp-and-continue.
var (
	// ErrDuplicateVariant is returned by Register when the id is taken.
	ErrDuplicateVariant = errors.New("duplicate variant id")

	// ErrVariantNotFound is returned by update/activate/deactivate
	// operations on an absent id.
	ErrVariantNotFound = errors.New("variant not found")
)
