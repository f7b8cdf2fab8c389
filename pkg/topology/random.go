package topology

import (
	"fmt"
	"math"
	"math/rand"
)

// RandomSpec holds the parameters for random topology generation.
type RandomSpec struct {
	NumServices int     `json:"num_services" yaml:"num_services"`
	MaxDepth    int     `json:"max_depth" yaml:"max_depth"`
	MaxWidth    int     `json:"max_width" yaml:"max_width"`
	NumGroups   int     `json:"num_groups" yaml:"num_groups"`
	Variability float64 `json:"variability" yaml:"variability"`
	Seed        int64   `json:"seed" yaml:"seed"`
}

// tier order: edges only go from a tier to a strictly greater one, or
// forward in creation index within the same tier. Databases are leaves.
var tierOrder = []ServiceType{ServiceProxy, ServiceWeb, ServiceDatabase}

// Generate builds a random topology honoring the spec's depth, width and
// group constraints. The result is acyclic by construction: services are
// partitioned into groups, each group is layered proxy -> web -> database,
// and connections only point down the tier order or toward a strictly
// greater creation index within the same tier.
//
// Identical seeds reproduce identical topologies. The draw order is fixed:
// for each service in creation order, the connection count is drawn first,
// then candidates are considered in increasing creation index, each kept
// with probability needed/remaining until the count is met.
func Generate(spec RandomSpec) (*Topology, error) {
	if spec.NumServices < 1 {
		return nil, &TopologyConstraintError{Reason: "num_services must be >= 1"}
	}
	if spec.MaxDepth < 1 {
		return nil, &TopologyConstraintError{Reason: "max_depth must be >= 1"}
	}
	if spec.MaxWidth < 0 {
		return nil, &TopologyConstraintError{Reason: "max_width must be >= 0"}
	}
	if spec.NumGroups < 1 {
		return nil, &TopologyConstraintError{Reason: "num_groups must be >= 1"}
	}
	if spec.NumServices < spec.NumGroups {
		return nil, &TopologyConstraintError{
			Reason: fmt.Sprintf("cannot place %d services into %d groups: need at least one service per group",
				spec.NumServices, spec.NumGroups),
		}
	}

	variability := clamp01(spec.Variability)
	rng := rand.New(rand.NewSource(spec.Seed))

	type node struct {
		name  string
		typ   ServiceType
		group int
		tier  int
		index int // global creation index
	}

	var nodes []node
	perGroup := groupSizes(spec.NumServices, spec.NumGroups)
	for g, size := range perGroup {
		counts := tierCounts(size)
		for tier, typ := range tierOrder {
			for k := 0; k < counts[tier]; k++ {
				nodes = append(nodes, node{
					name:  fmt.Sprintf("%s-%d-%d", typ, g+1, k+1),
					typ:   typ,
					group: g,
					tier:  tier,
					index: len(nodes),
				})
			}
		}
	}

	connections := make([][]int, len(nodes))
	level := make([]int, len(nodes)) // longest path from an entry, in services

	for i, n := range nodes {
		if n.typ.Entry() {
			level[i] = 1
		}
		// Unreachable services keep level 0 and never spread depth.
		if level[i] == 0 || level[i] >= spec.MaxDepth {
			continue
		}
		if n.typ == ServiceDatabase {
			continue // leaf tier
		}

		// Creation order within a group is tier-ascending, so any same-group
		// service with a greater index is either deeper down the tier order
		// or further along the same tier. Both directions are safe targets.
		var eligible []int
		for j := i + 1; j < len(nodes); j++ {
			if nodes[j].group == n.group {
				eligible = append(eligible, j)
			}
		}

		count := drawWidth(rng, spec.MaxWidth, variability)
		if count > len(eligible) {
			count = len(eligible)
		}

		// Selection sampling over the candidates in index order yields a
		// uniform count-subset with no sort step.
		picked := make([]int, 0, count)
		needed := count
		for k := 0; k < len(eligible) && needed > 0; k++ {
			if rng.Float64()*float64(len(eligible)-k) < float64(needed) {
				picked = append(picked, eligible[k])
				needed--
			}
		}
		connections[i] = picked

		for _, j := range picked {
			if level[i]+1 > level[j] {
				level[j] = level[i] + 1
			}
		}
	}

	services := make([]ServiceConfig, len(nodes))
	for i, n := range nodes {
		targets := make([]string, 0, len(connections[i]))
		for _, j := range connections[i] {
			targets = append(targets, nodes[j].name)
		}
		services[i] = ServiceConfig{Name: n.name, Type: n.typ, Connections: targets}
	}

	// Acyclicity holds by construction; validate anyway as a safety net.
	return New(services)
}

// groupSizes splits total into count near-equal partitions, earlier groups
// taking the remainder.
func groupSizes(total, count int) []int {
	sizes := make([]int, count)
	base := total / count
	rem := total % count
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}

// tierCounts splits a group of the given size across the proxy, web and
// database tiers: roughly 20% proxies, 30% databases, the rest web, always
// at least one proxy.
func tierCounts(size int) [3]int {
	if size <= 1 {
		return [3]int{size, 0, 0}
	}
	proxies := size / 5
	if proxies < 1 {
		proxies = 1
	}
	dbs := size * 3 / 10
	if dbs < 1 {
		dbs = 1
	}
	if proxies+dbs > size {
		dbs = size - proxies
	}
	return [3]int{proxies, size - proxies - dbs, dbs}
}

// drawWidth draws an outbound connection count. At zero variability every
// service gets maxWidth connections; higher variability widens the spread
// down toward zero.
func drawWidth(rng *rand.Rand, maxWidth int, variability float64) int {
	if maxWidth == 0 {
		return 0
	}
	spread := int(math.Round(float64(maxWidth) * variability))
	if spread == 0 {
		return maxWidth
	}
	return maxWidth - rng.Intn(spread+1)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
