// Package adapters mounts nimbus HTTP functions on echo, gin and fiber.
package adapters

import (
	"fmt"
	"strings"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// Server names accepted by New
const (
	EchoServer  = "echo"
	GinServer   = "gin"
	FiberServer = "fiber"
)

// New creates the default adapter for a server name. An empty name selects echo.
func New(name string) (nimbus.Server, error) {
	switch strings.ToLower(name) {
	case "", EchoServer:
		return NewDefaultEchoAdapter(), nil
	case GinServer:
		return NewDefaultGinAdapter(), nil
	case FiberServer:
		return NewDefaultFiberAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown server %q, expected one of echo, gin, fiber", name)
	}
}

// Mount registers every HTTP trigger of the functions that applies to stage.
// Triggers with an allowed CORS origin answer with that origin.
func Mount(server nimbus.Server, stage string, functions ...nimbus.Function) int {
	mounted := 0
	for _, fn := range functions {
		if fn.Kind != nimbus.HTTPKind {
			continue
		}
		for _, t := range fn.TriggersFor(stage) {
			trigger := t.(nimbus.HTTPTrigger)
			var mws []nimbus.MiddlewareFunc
			if trigger.AllowedCorsOrigin != "" {
				mws = append(mws, CORS(trigger.AllowedCorsOrigin))
			}
			server.RegisterRoute(trigger.Method, nimbus.Path(trigger.Path), fn.HTTP, mws...)
			mounted++
		}
	}
	return mounted
}

// CORS sets Access-Control-Allow-Origin on every response of a route
func CORS(origin string) nimbus.MiddlewareFunc {
	return func(next nimbus.HandlerFunc) nimbus.HandlerFunc {
		return func(ctx nimbus.RequestContext) error {
			ctx.SetHeader("Access-Control-Allow-Origin", origin)
			return next(ctx)
		}
	}
}

// wrap applies route middlewares so the first one runs outermost
func wrap(handler nimbus.HandlerFunc, middlewares []nimbus.MiddlewareFunc) nimbus.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
