package constants

import "strings"

// Status is the tri-state outcome exposed to callers of the flattened validate endpoint.
type Status string

// Stable values (clients match on these exact strings).
const (
	StatusValid   Status = "valid"   // no issues at all
	StatusWarning Status = "warning" // issues, none HIGH
	StatusInvalid Status = "invalid" // at least one HIGH issue
)

// Upper is the history representation ("VALID", "WARNING", "INVALID").
func (s Status) Upper() string {
	return strings.ToUpper(string(s))
}
