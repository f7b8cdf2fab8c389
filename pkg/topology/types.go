package topology

import "fmt"

// ServiceType represents the tier a service belongs to.
type ServiceType string

const (
	ServiceProxy    ServiceType = "proxy"
	ServiceWeb      ServiceType = "web"
	ServiceDatabase ServiceType = "database"
)

// Valid reports whether t is one of the known service types.
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceProxy, ServiceWeb, ServiceDatabase:
		return true
	}
	return false
}

// Entry reports whether services of this type may originate a root call.
func (t ServiceType) Entry() bool {
	return t == ServiceProxy
}

// ServiceConfig describes one service and its outbound call targets.
// Connections reference other services by name within the same topology.
type ServiceConfig struct {
	Name        string      `json:"name" yaml:"name"`
	Type        ServiceType `json:"service_type" yaml:"service_type"`
	Connections []string    `json:"connections" yaml:"connections"`
}

// Topology is a validated, immutable set of services. Construct one with
// New or Generate; the zero value is not usable.
type Topology struct {
	services []ServiceConfig
	byName   map[string]int
}

// New validates the given services and returns a Topology.
// It checks name uniqueness, that every connection target exists, and that
// the connection graph is acyclic. Any violation is reported as an
// *InvalidTopologyError; no partial topology is returned.
func New(services []ServiceConfig) (*Topology, error) {
	if len(services) == 0 {
		return nil, &InvalidTopologyError{Reason: "topology has no services"}
	}

	byName := make(map[string]int, len(services))
	for i, svc := range services {
		if svc.Name == "" {
			return nil, &InvalidTopologyError{Reason: fmt.Sprintf("service at index %d has empty name", i)}
		}
		if !svc.Type.Valid() {
			return nil, &InvalidTopologyError{
				Reason:  fmt.Sprintf("service %q has unknown type %q", svc.Name, svc.Type),
				Service: svc.Name,
			}
		}
		if _, dup := byName[svc.Name]; dup {
			return nil, &InvalidTopologyError{
				Reason:  fmt.Sprintf("duplicate service name %q", svc.Name),
				Service: svc.Name,
			}
		}
		byName[svc.Name] = i
	}

	for _, svc := range services {
		for _, conn := range svc.Connections {
			if _, ok := byName[conn]; !ok {
				return nil, &InvalidTopologyError{
					Reason:  fmt.Sprintf("service %q connects to non-existent service %q", svc.Name, conn),
					Service: svc.Name,
					Target:  conn,
				}
			}
		}
	}

	t := &Topology{services: cloneServices(services), byName: byName}
	if cycle := t.findCycle(); cycle != nil {
		return nil, &InvalidTopologyError{
			Reason: fmt.Sprintf("connection graph contains a cycle: %v", cycle),
			Cycle:  cycle,
		}
	}
	return t, nil
}

// Services returns the services in creation order.
// The returned slice is a copy and safe to modify.
func (t *Topology) Services() []ServiceConfig {
	return cloneServices(t.services)
}

// Len returns the number of services.
func (t *Topology) Len() int {
	return len(t.services)
}

// Lookup returns the service with the given name.
func (t *Topology) Lookup(name string) (ServiceConfig, bool) {
	i, ok := t.byName[name]
	if !ok {
		return ServiceConfig{}, false
	}
	return t.services[i], true
}

// Entries returns the services eligible to originate a root call,
// in creation order.
func (t *Topology) Entries() []ServiceConfig {
	var entries []ServiceConfig
	for _, svc := range t.services {
		if svc.Type.Entry() {
			entries = append(entries, svc)
		}
	}
	return entries
}

// findCycle runs a depth-first search over the connection graph and returns
// the first cycle found as a name path, or nil if the graph is acyclic.
func (t *Topology) findCycle() []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(t.services))
	var stack []string

	var visit func(name string) []string
	visit = func(name string) []string {
		state[name] = inStack
		stack = append(stack, name)

		svc := t.services[t.byName[name]]
		for _, conn := range svc.Connections {
			switch state[conn] {
			case inStack:
				// Cut the stack down to the start of the cycle.
				for i, n := range stack {
					if n == conn {
						cycle := append([]string{}, stack[i:]...)
						return append(cycle, conn)
					}
				}
			case unvisited:
				if cycle := visit(conn); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, svc := range t.services {
		if state[svc.Name] == unvisited {
			if cycle := visit(svc.Name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func cloneServices(services []ServiceConfig) []ServiceConfig {
	out := make([]ServiceConfig, len(services))
	for i, svc := range services {
		out[i] = svc
		out[i].Connections = append([]string(nil), svc.Connections...)
	}
	return out
}
