package topology

import "fmt"

// Preset names a predefined topology.
type Preset string

const (
	PresetSimple        Preset = "simple"
	PresetMicroservices Preset = "microservices"
	PresetComplex       Preset = "complex"
)

// FromPreset returns one of the predefined topologies.
func FromPreset(p Preset) (*Topology, error) {
	switch p {
	case PresetSimple:
		return New(simpleServices())
	case PresetMicroservices:
		return New(microserviceServices())
	case PresetComplex:
		return New(complexServices())
	default:
		return nil, fmt.Errorf("unknown topology preset: %q", p)
	}
}

// simpleServices is a three-tier chain: one proxy, one web service,
// one database.
func simpleServices() []ServiceConfig {
	return []ServiceConfig{
		{Name: "gateway", Type: ServiceProxy, Connections: []string{"backend"}},
		{Name: "backend", Type: ServiceWeb, Connections: []string{"database"}},
		{Name: "database", Type: ServiceDatabase},
	}
}

func microserviceServices() []ServiceConfig {
	return []ServiceConfig{
		{Name: "api-gateway", Type: ServiceProxy, Connections: []string{"auth-service", "user-service", "order-service"}},
		{Name: "auth-service", Type: ServiceWeb, Connections: []string{"user-service", "auth-db"}},
		{Name: "user-service", Type: ServiceWeb, Connections: []string{"user-db"}},
		{Name: "order-service", Type: ServiceWeb, Connections: []string{"inventory-service", "payment-service", "order-db"}},
		{Name: "inventory-service", Type: ServiceWeb, Connections: []string{"inventory-db"}},
		{Name: "payment-service", Type: ServiceWeb, Connections: []string{"payment-db"}},
		{Name: "auth-db", Type: ServiceDatabase},
		{Name: "user-db", Type: ServiceDatabase},
		{Name: "order-db", Type: ServiceDatabase},
		{Name: "inventory-db", Type: ServiceDatabase},
		{Name: "payment-db", Type: ServiceDatabase},
	}
}

func complexServices() []ServiceConfig {
	return []ServiceConfig{
		{Name: "edge-gateway", Type: ServiceProxy, Connections: []string{"web-frontend", "mobile-api", "partner-api"}},
		{Name: "web-frontend", Type: ServiceProxy, Connections: []string{"auth-service", "user-service", "product-service"}},
		{Name: "mobile-api", Type: ServiceProxy, Connections: []string{"auth-service", "user-service", "product-service"}},
		{Name: "partner-api", Type: ServiceProxy, Connections: []string{"auth-service", "product-service", "analytics-service"}},
		{Name: "auth-service", Type: ServiceWeb, Connections: []string{"user-service", "auth-db", "cache-service"}},
		{Name: "user-service", Type: ServiceWeb, Connections: []string{"user-db", "notification-service"}},
		{Name: "product-service", Type: ServiceWeb, Connections: []string{"product-db", "inventory-service", "cache-service"}},
		{Name: "inventory-service", Type: ServiceWeb, Connections: []string{"inventory-db", "supplier-service"}},
		{Name: "supplier-service", Type: ServiceWeb, Connections: []string{"supplier-db"}},
		{Name: "notification-service", Type: ServiceWeb, Connections: []string{"notification-db", "email-service", "sms-service"}},
		{Name: "analytics-service", Type: ServiceWeb, Connections: []string{"analytics-db", "reporting-service"}},
		{Name: "reporting-service", Type: ServiceWeb, Connections: []string{"reporting-db"}},
		{Name: "cache-service", Type: ServiceWeb},
		{Name: "email-service", Type: ServiceWeb},
		{Name: "sms-service", Type: ServiceWeb},
		{Name: "auth-db", Type: ServiceDatabase},
		{Name: "user-db", Type: ServiceDatabase},
		{Name: "product-db", Type: ServiceDatabase},
		{Name: "inventory-db", Type: ServiceDatabase},
		{Name: "supplier-db", Type: ServiceDatabase},
		{Name: "notification-db", Type: ServiceDatabase},
		{Name: "analytics-db", Type: ServiceDatabase},
		{Name: "reporting-db", Type: ServiceDatabase},
	}
}
