package blaze

import "fmt"

// ═══════════════════════════════════════════════════════════════════════════════
// ERROR TAXONOMY
// ═══════════════════════════════════════════════════════════════════════════════
// IndexManager operations fail in one of five distinguishable ways. Each kind
// wraps an underlying error (or a plain message) so callers can use errors.As
// to branch on kind while errors.Is / %w still unwraps to the original cause.
// ═══════════════════════════════════════════════════════════════════════════════

// ValidationError reports malformed input: bad config, invalid import blob,
// a negative MaxResults, a threshold outside [0,1].
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an update or remove against an unknown document id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %q", e.ID)
}

// StorageError wraps a SnapshotStore backend failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// SearchError reports internal index corruption or a scorer failure that
// could not be degraded gracefully.
type SearchError struct {
	Op  string
	Err error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search: %s: %v", e.Op, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// CacheError reports an illegal ResultCache operation, e.g. set(key, nil).
type CacheError struct {
	Reason string
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache: %s", e.Reason)
}
