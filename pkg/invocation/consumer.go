package invocation

import (
	"context"

	"go.uber.org/zap"

	"hangarcore/pkg/logger"
	"hangarcore/pkg/models"
)

// ConsumerPort is the capability a module's screen manager hands to the
// consumer: route switching plus optional parameter handling. The source
// system used an inherited mixin; composition keeps the GUI dependency
// one-way.
type ConsumerPort interface {
	RouteTo(screenID string)
}

// ParamsHandler is optionally implemented by ports that accept invocation
// parameters.
type ParamsHandler interface {
	HandleInvocationParams(params map[string]any) error
}

// Consumer consumes at most one invocation at module startup and routes
// the module's own GUI accordingly.
type Consumer struct {
	Bus        *Bus
	ModuleName string
	// RouteOnInvocation is the fallback route when the record carries none.
	RouteOnInvocation string
	Port              ConsumerPort
}

// Start fetches and applies this module's pending invocation, if any.
// Returns the consumed record, or nil when none was pending. Port handler
// failures are logged and swallowed; they must not prevent startup.
func (c *Consumer) Start(ctx context.Context, userID string) *models.Invocation {
	inv := c.Bus.FetchAndConsume(ctx, userID, c.ModuleName)
	if inv == nil {
		return nil
	}

	route := inv.Route
	if route == "" {
		route = c.RouteOnInvocation
	}
	if route != "" && c.Port != nil {
		c.Port.RouteTo(route)
	}

	if len(inv.Params) > 0 {
		if h, ok := c.Port.(ParamsHandler); ok {
			applyParams(h, c.ModuleName, inv.Params)
		}
	}
	return inv
}

// applyParams isolates handler panics so a bad params payload cannot take
// down module startup.
func applyParams(h ParamsHandler, module string, params map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("invocation_params_panic", zap.String("module", module), zap.Any("panic", r))
		}
	}()
	if err := h.HandleInvocationParams(params); err != nil {
		logger.Log.Error("invocation_params_failed", zap.String("module", module), zap.Error(err))
	}
}
