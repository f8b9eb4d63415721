package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/lborres/rota/core"
	"github.com/lborres/rota/services"
)

type Adapter struct {
	app      *fiber.App
	registry *services.EndpointRegistry
}

var _ core.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app, registry: services.NewEndpointRegistry()}
}

// Registry exposes the route table so callers can add plugin endpoints
// before RegisterRoutes runs.
func (a *Adapter) Registry() *services.EndpointRegistry {
	return a.registry
}

// RegisterRoutes mounts every registered endpoint under basePath. Each
// endpoint's OperationID must have a handler factory. A panicking handler
// answers 500 instead of taking the process down.
func (a *Adapter) RegisterRoutes(handler core.AdminHandler, guard core.AdminGuard, basePath string) error {
	api := a.app.Group(basePath, recoverer.New())

	var protect fiber.Handler
	if guard != nil {
		protect = requireAdmin(guard)
	}

	for _, ep := range a.registry.Endpoints() {
		factory, ok := handlerFactories[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler for operation %q (%s %s)", ep.Metadata.OperationID, ep.Method, ep.Path)
		}

		if ep.Metadata.Protected && protect != nil {
			api.Add([]string{ep.Method}, ep.Path, protect, factory(handler))
			continue
		}
		api.Add([]string{ep.Method}, ep.Path, factory(handler))
	}

	return nil
}
