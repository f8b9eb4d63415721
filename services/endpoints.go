package services

import (
	"fmt"

	"github.com/lborres/rota/core"
)

// BaseEndpoints returns framework-agnostic endpoint descriptors
// for the account administration surface.
//
// Adapters resolve each OperationID to their own handler, so several
// frameworks can share the same route table.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/config",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: "getConfig",
				Description: "Get keys, redacted accounts and model mapping",
				Protected:   true,
			},
		},
		{
			Path:   "/config",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: "updateConfig",
				Description: "Replace keys, accounts or model mapping, keeping stored credentials",
				Protected:   true,
			},
		},
		{
			Path:   "/keys",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: "addKey",
				Description: "Add an API key",
				Protected:   true,
			},
		},
		{
			Path:   "/keys/:key",
			Method: "DELETE",
			Metadata: core.EndpointMetadata{
				OperationID: "deleteKey",
				Description: "Delete an API key",
				Protected:   true,
			},
		},
		{
			Path:   "/accounts",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: "listAccounts",
				Description: "List accounts newest first, paginated and redacted",
				Protected:   true,
			},
		},
		{
			Path:   "/accounts",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: "addAccount",
				Description: "Add a provider account",
				Protected:   true,
			},
		},
		{
			Path:   "/accounts/:identifier",
			Method: "DELETE",
			Metadata: core.EndpointMetadata{
				OperationID: "deleteAccount",
				Description: "Delete a provider account by email or mobile",
				Protected:   true,
			},
		},
		{
			Path:   "/queue/status",
			Method: "GET",
			Metadata: core.EndpointMetadata{
				OperationID: "getQueueStatus",
				Description: "Get the account rotation queue status",
				Protected:   true,
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate METHOD:PATH combinations.
type EndpointRegistry struct {
	// endpoints stores all registered endpoints keyed by "METHOD:PATH"
	endpoints map[string]*core.Endpoint
	// order keeps registration order so routes mount deterministically
	order []string
}

// NewEndpointRegistry creates a new registry with all base endpoints
// pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	for _, ep := range BaseEndpoints() {
		// base endpoints are unique by construction
		_ = reg.register(ep)
	}

	return reg
}

func endpointKey(ep core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

// register adds a single endpoint to the registry with conflict detection.
func (r *EndpointRegistry) register(ep core.Endpoint) error {
	key := endpointKey(ep)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = &ep
	r.order = append(r.order, key)
	return nil
}

// RegisterPlugin registers additional endpoints. If any of them conflicts
// with an existing endpoint or with another one in the same batch, none
// are registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool)
	for _, ep := range endpoints {
		key := endpointKey(ep)

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", ep.Method, ep.Path)
		}
		seen[key] = true
	}

	for _, ep := range endpoints {
		_ = r.register(ep)
	}

	return nil
}

// Endpoints returns all registered endpoints in registration order.
func (r *EndpointRegistry) Endpoints() []core.Endpoint {
	result := make([]core.Endpoint, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, *r.endpoints[key])
	}
	return result
}
