package adapters

import (
	"context"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// FiberAdapter mounts nimbus HTTP functions on a Fiber app
type FiberAdapter struct {
	app *fiber.App
}

// NewFiberAdapter creates a Fiber app whose error handler answers through nimbus.StatusOf
func NewFiberAdapter() *FiberAdapter {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
			}
			code, body := nimbus.StatusOf(err)
			return c.Status(code).JSON(body)
		},
	})
	return &FiberAdapter{app: app}
}

// NewDefaultFiberAdapter adds recovery middleware
func NewDefaultFiberAdapter() *FiberAdapter {
	adapter := NewFiberAdapter()
	adapter.app.Use(recover.New())
	return adapter
}

// RegisterRoute adds a route. ANY registers every method.
func (fa *FiberAdapter) RegisterRoute(method string, path nimbus.Path, handler nimbus.HandlerFunc, middlewares ...nimbus.MiddlewareFunc) {
	h := wrap(handler, middlewares)
	fiberHandler := func(c *fiber.Ctx) error {
		return h(&FiberRequestContext{ctx: c})
	}

	route := path.Format(false)
	if strings.EqualFold(method, "ANY") {
		fa.app.All(route, fiberHandler)
		return
	}
	fa.app.Add(strings.ToUpper(method), route, fiberHandler)
}

// Use applies middleware to every route registered afterwards
func (fa *FiberAdapter) Use(mw nimbus.MiddlewareFunc) {
	fa.app.Use(func(c *fiber.Ctx) error {
		return mw(func(nimbus.RequestContext) error {
			return c.Next()
		})(&FiberRequestContext{ctx: c})
	})
}

func (fa *FiberAdapter) Start(addr string) error {
	return fa.app.Listen(addr)
}

func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// GetApp returns the underlying Fiber app
func (fa *FiberAdapter) GetApp() *fiber.App {
	return fa.app
}

// FiberRequestContext implements nimbus.RequestContext over fiber.Ctx
type FiberRequestContext struct {
	ctx *fiber.Ctx
}

func (c *FiberRequestContext) Context() context.Context {
	return c.ctx.UserContext()
}

func (c *FiberRequestContext) Method() string { return c.ctx.Method() }
func (c *FiberRequestContext) Path() string   { return c.ctx.Path() }
func (c *FiberRequestContext) RealIP() string { return c.ctx.IP() }

// Param unescapes the value and falls back to the greedy "*" parameter
func (c *FiberRequestContext) Param(key string) string {
	v := c.ctx.Params(key)
	if v == "" {
		v = c.ctx.Params("*")
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func (c *FiberRequestContext) QueryParam(key string) string {
	return c.ctx.Query(key)
}

func (c *FiberRequestContext) QueryParams() map[string][]string {
	result := make(map[string][]string)
	c.ctx.Request().URI().QueryArgs().VisitAll(func(key, value []byte) {
		result[string(key)] = append(result[string(key)], string(value))
	})
	return result
}

func (c *FiberRequestContext) Header(key string) string {
	return c.ctx.Get(key)
}

// Body copies the request body, fasthttp reuses its buffers
func (c *FiberRequestContext) Body() ([]byte, error) {
	return append([]byte(nil), c.ctx.Body()...), nil
}

func (c *FiberRequestContext) Bind(v interface{}) error {
	if err := c.ctx.BodyParser(v); err != nil {
		return nimbus.ErrBadRequest("invalid request body").WithInternal(err)
	}
	return nil
}

func (c *FiberRequestContext) SetHeader(key, value string) {
	c.ctx.Set(key, value)
}

func (c *FiberRequestContext) JSON(code int, v interface{}) error {
	return c.ctx.Status(code).JSON(v)
}

func (c *FiberRequestContext) String(code int, s string) error {
	return c.ctx.Status(code).SendString(s)
}

func (c *FiberRequestContext) Blob(code int, contentType string, b []byte) error {
	c.ctx.Set(fiber.HeaderContentType, contentType)
	return c.ctx.Status(code).Send(b)
}

func (c *FiberRequestContext) NoContent(code int) error {
	return c.ctx.SendStatus(code)
}

func (c *FiberRequestContext) Get(key string) interface{} {
	return c.ctx.Locals(key)
}

func (c *FiberRequestContext) Set(key string, val interface{}) {
	c.ctx.Locals(key, val)
}
