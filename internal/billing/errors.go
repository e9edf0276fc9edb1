package billing

import "errors"

// Error kinds surfaced by the billing engine. Handlers map these onto HTTP
// statuses; the scheduler records them per template without aborting a batch.
var (
	// ErrInvalidInput is returned for bad totals input or lifecycle
	// validation failures (empty items, negative price, bad dates).
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateNumber is returned when two creations for the same user
	// raced onto the same invoice number. The create path retries once with
	// a recomputed number before surfacing this.
	ErrDuplicateNumber = errors.New("duplicate invoice number")

	// ErrUnsupportedFrequency is returned for a recurring template whose
	// frequency is not weekly, monthly, quarterly or yearly.
	ErrUnsupportedFrequency = errors.New("unsupported frequency")

	// ErrNotFound is returned when a referenced client, project or invoice
	// does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized marks ownership violations. The engine itself trusts
	// its caller; handlers use this kind when the check fails at the edge.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyGenerated is returned when a concurrent scheduler run won
	// the last-generated guard for the same due period.
	ErrAlreadyGenerated = errors.New("already generated for period")
)
