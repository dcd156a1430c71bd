package normalize

import (
	"errors"
	"fmt"
)

var (
	errEmptyContent = errors.New("empty content")
	errNoArticles   = errors.New("no articles in payload")
	errNotJSON      = errors.New("content is not valid JSON")
)

// FormatError means the upstream payload could not be parsed into the
// expected articles shape. It is not retried here: re-parsing the same
// malformed output gains nothing, and whether to re-invoke the upstream is
// the orchestrator's call.
type FormatError struct {
	Reason      string
	PayloadSize int
	Shape       string // what the payload looked like, for diagnosis
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("normalize: bad payload format: %s (size=%d shape=%s)", e.Reason, e.PayloadSize, e.Shape)
}

// InsufficiencyError means parsing worked but fewer than the minimum number
// of valid articles survived. This signals a thin news day, not a bug, and
// carries a distinct log signal from FormatError.
type InsufficiencyError struct {
	Valid   int
	Minimum int
}

func (e *InsufficiencyError) Error() string {
	return fmt.Sprintf("normalize: only %d valid articles, need at least %d", e.Valid, e.Minimum)
}

// IsFormat reports whether err is a payload format failure.
func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsInsufficient reports whether err is a content-insufficiency failure.
func IsInsufficient(err error) bool {
	var ie *InsufficiencyError
	return errors.As(err, &ie)
}
