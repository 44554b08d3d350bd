// Package identity turns user input into a thread reference.
package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/leonletto/threadtrack/internal/types"
)

// ErrInvalidReference is returned for input that does not name a thread.
var ErrInvalidReference = errors.New("invalid thread reference")

// threadURLPattern matches https://boards.<site>/<board>/thread/<id> with an
// optional slug, query or fragment after the id.
var threadURLPattern = regexp.MustCompile(`^https://boards\.([A-Za-z0-9.-]+)/([^/?#\s]+)/thread/(\d+)(?:[/?#]\S*)?$`)

// Ref is a parsed thread reference.
type Ref struct {
	Site     string // empty for manual references
	Board    string
	ThreadID string
}

// Key returns the registry key for the reference.
func (r Ref) Key() types.ThreadKey {
	return types.ThreadKey{Board: r.Board, ThreadID: r.ThreadID}
}

// ParseURL extracts board and thread id from a canonical thread URL.
func ParseURL(ref string) (Ref, error) {
	m := threadURLPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return Ref{}, fmt.Errorf("%w: %q is not a thread URL (expected https://boards.<site>/<board>/thread/<id>)", ErrInvalidReference, ref)
	}
	return Ref{Site: m[1], Board: m[2], ThreadID: m[3]}, nil
}

// Manual accepts a board/thread pair as given. Unlike ParseURL it does not
// check the values against the URL pattern; only emptiness is rejected.
func Manual(board, threadID string) (Ref, error) {
	board = strings.TrimSpace(board)
	threadID = strings.TrimSpace(threadID)
	if board == "" || threadID == "" {
		return Ref{}, fmt.Errorf("%w: board and thread id must not be empty", ErrInvalidReference)
	}
	return Ref{Board: board, ThreadID: threadID}, nil
}
