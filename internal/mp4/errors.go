package mp4

import (
	"errors"
	"fmt"
)

// Sentinel errors for chapter extraction.
//
// Wrap with context at the call site: fmt.Errorf("track %d: %w", id, ErrTrackNotFound).
var (
	// ErrTrackNotFound indicates a caller asked for a track id that does not
	// exist in the container. Malformed or chapter-less files never produce
	// this error; they degrade to an empty chapter list instead.
	ErrTrackNotFound = errors.New("track not found")
)

// CorruptedAtomError reports an atom whose declared structure cannot be read.
// It is used internally for diagnostics; the public extraction API degrades
// corrupt containers to partial or empty results rather than returning it.
type CorruptedAtomError struct {
	Type   string
	Offset int64
	Reason string
}

func (e *CorruptedAtomError) Error() string {
	return fmt.Sprintf("corrupted atom %q at offset %d: %s", e.Type, e.Offset, e.Reason)
}
