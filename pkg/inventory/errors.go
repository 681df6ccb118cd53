package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by NotFoundError through errors.Is.
var ErrNotFound = errors.New("device not found")

// NotFoundError reports an id or query that resolves to no record.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no device matches %q", e.Query)
}

// Is makes errors.Is(err, ErrNotFound) succeed.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AmbiguousError reports a query that matched more than one record.
type AmbiguousError struct {
	Query   string
	Matches []Match
}

func (e *AmbiguousError) Error() string {
	shown := make([]string, 0, 5)
	for i, m := range e.Matches {
		if i == 5 {
			shown = append(shown, "...")
			break
		}
		shown = append(shown, m.Display)
	}
	return fmt.Sprintf("%q matches %d devices: %s", e.Query, len(e.Matches), strings.Join(shown, ", "))
}
