package scenario

import "fmt"

// ValidationError reports an override entry that cannot be applied to the
// model: an unknown attribute, a calculated attribute, or a non-finite value.
type ValidationError struct {
	Source string // scenario name, or "override" for manual values
	Block  string
	Attr   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scenario %s: %s.%s: %s", e.Source, e.Block, e.Attr, e.Reason)
}
