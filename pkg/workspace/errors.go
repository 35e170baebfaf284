package workspace

import (
	"fmt"
	"strings"
)

// ValidationError reports a workspace that cannot be run as laid out.
type ValidationError struct {
	Reason string
	Paths  []string
}

func (e *ValidationError) Error() string {
	if len(e.Paths) == 0 {
		return e.Reason
	}

	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Paths, ", "))
}
