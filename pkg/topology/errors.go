package topology

import "fmt"

// InvalidTopologyError reports a structurally invalid explicit topology:
// a duplicate name, a dangling connection, or a cycle.
type InvalidTopologyError struct {
	Reason  string
	Service string   // offending service, if applicable
	Target  string   // dangling connection target, if applicable
	Cycle   []string // cycle path, root repeated at the end, if applicable
}

func (e *InvalidTopologyError) Error() string {
	return fmt.Sprintf("invalid topology: %s", e.Reason)
}

// TopologyConstraintError reports random-mode parameters that cannot be
// satisfied, e.g. fewer services than groups.
type TopologyConstraintError struct {
	Reason string
}

func (e *TopologyConstraintError) Error() string {
	return fmt.Sprintf("topology constraints unsatisfiable: %s", e.Reason)
}
