// internal/services/errors.go
package services

import "errors"

var (
	// ErrApplicationNotFound is returned for missing applications on
	// authenticated surfaces.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrLookupNotFound is the single outcome for every public status-check
	// miss. It never discloses which field failed to match.
	ErrLookupNotFound = errors.New("no application matches the provided details")

	// ErrInvalidTransition is returned when a review operation is attempted
	// from a status that is not a valid source state, including the loser of
	// a concurrent-transition race.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrActorRequired is returned when a transition is attempted without an
	// authenticated reviewer.
	ErrActorRequired = errors.New("transition requires an authenticated actor")

	// ErrReasonRequired is returned when a rejection is attempted without a
	// non-empty reason. A rejected row always carries one.
	ErrReasonRequired = errors.New("rejection requires a reason")

	// ErrDraftIncomplete is returned when a submission arrives with an
	// expired or partial wizard draft.
	ErrDraftIncomplete = errors.New("application draft is incomplete")

	ErrProgramNotFound = errors.New("program not found")
	ErrProgramClosed   = errors.New("program is not accepting applications")

	ErrDocumentNotFound = errors.New("document not found")
)
