package player

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPopTimeout signals that a blocking queue pop ran out of time. It is a
// distinct signal, not an "empty queue" error.
var ErrPopTimeout = errors.New("queue pop timed out")

// NotFoundError means the extractor found nothing for a user's query. The
// queue is unaffected; the message goes back to the requester.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no results found for %q", e.Query)
}

// ResolutionError means an item exists but no playable stream could be
// produced (geo-block, removed, private). During playlist batch loads it is
// counted and skipped; on direct requests it is surfaced.
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve a playable stream for %s: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// StateError reports an operation invoked in a state that cannot honor it,
// like skipping with nothing playing. Surfaced as a user-facing no-op.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// IsRecoverableStreamError classifies transport failures that a single
// stream-URL re-resolution can fix: the upstream URL expired or the CDN
// rejected it.
func IsRecoverableStreamError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"403", "forbidden", "expired", "unavailable"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsUnavailableEntry classifies the routine playlist-entry failures that
// batch loading counts silently instead of logging.
func IsUnavailableEntry(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"video unavailable", "private video", "deleted video", "removed", "no results found"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
