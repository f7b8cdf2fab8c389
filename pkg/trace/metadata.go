package trace

import (
	"fmt"
	"math/rand"

	"github.com/tracesmith/tracesmith/pkg/topology"
)

// Metadata keys are fixed per service tier; values are randomized within
// tier-appropriate ranges. The map is always present, even when a tier has
// no keys to contribute.
const (
	MetaRoute        = "route"
	MetaEndpoint     = "endpoint"
	MetaHTTPStatus   = "http_status"
	MetaQuery        = "query"
	MetaRowsAffected = "rows_affected"
)

var (
	endpointPool = []string{"/auth/login", "/users", "/orders", "/payments", "/inventory", "/search"}
	queryPool    = []string{"SELECT", "INSERT", "UPDATE", "DELETE"}

	successCodes = []string{"200", "201", "204"}
	errorCodes   = []string{"500", "502", "503"}
)

// drawMetadata populates the per-tier metadata for a record. The HTTP status
// code is derived from the record status so the two never contradict.
func drawMetadata(rng *rand.Rand, typ topology.ServiceType, status Status) map[string]string {
	meta := make(map[string]string)
	switch typ {
	case topology.ServiceProxy:
		meta[MetaRoute] = fmt.Sprintf("/api/v%d/resource/%d", 1+rng.Intn(3), 1+rng.Intn(100))
		meta[MetaHTTPStatus] = drawHTTPStatus(rng, status)
	case topology.ServiceWeb:
		meta[MetaEndpoint] = endpointPool[rng.Intn(len(endpointPool))]
		meta[MetaHTTPStatus] = drawHTTPStatus(rng, status)
	case topology.ServiceDatabase:
		meta[MetaQuery] = queryPool[rng.Intn(len(queryPool))]
		meta[MetaRowsAffected] = fmt.Sprintf("%d", rng.Intn(500))
	}
	return meta
}

func drawHTTPStatus(rng *rand.Rand, status Status) string {
	if status == StatusError {
		return errorCodes[rng.Intn(len(errorCodes))]
	}
	return successCodes[rng.Intn(len(successCodes))]
}
