// pkg/registry/schema.go
package registry

type OperationRegistry struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Operations  []Operation `json:"operations"`
}

type Operation struct {
	Name            string   `json:"name"`
	DisplayName     string   `json:"displayName"`
	Description     string   `json:"description"`
	Kind            string   `json:"kind"` // "read" or "write"
	Arguments       []string `json:"arguments"`
	FaultCodes      []string `json:"faultCodes,omitempty"`
	RequiresCaller  bool     `json:"requiresCaller"`
	RequiresPayment bool     `json:"requiresPayment"`
}
