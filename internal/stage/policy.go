package stage

import (
	"fmt"
	"strings"
)

// ErrorPolicy decides what a script failure does to the current record.
type ErrorPolicy string

const (
	// Strict turns the failure into a fatal ConvertingError.
	Strict ErrorPolicy = "strict"
	// Skip drops the record.
	Skip ErrorPolicy = "skip"
	// Keep lets the record through as if the failing script had not run.
	Keep ErrorPolicy = "keep"
)

// Policies lists the accepted policy names.
var Policies = []ErrorPolicy{Strict, Skip, Keep}

// ParsePolicy validates a policy name. The empty string means Strict.
func ParsePolicy(s string) (ErrorPolicy, error) {
	if s == "" {
		return Strict, nil
	}
	for _, p := range Policies {
		if s == string(p) {
			return p, nil
		}
	}
	names := make([]string, len(Policies))
	for i, p := range Policies {
		names[i] = string(p)
	}
	return "", fmt.Errorf("invalid error policy: %q (supported: %s)", s, strings.Join(names, ", "))
}

func (p ErrorPolicy) String() string { return string(p) }
