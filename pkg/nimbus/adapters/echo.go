package adapters

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// EchoAdapter mounts nimbus HTTP functions on an Echo instance
type EchoAdapter struct {
	engine *echo.Echo
}

// NewEchoAdapter wraps an existing Echo instance. Handler errors are answered
// through nimbus.StatusOf.
func NewEchoAdapter(e *echo.Echo) *EchoAdapter {
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = echoErrorHandler
	return &EchoAdapter{engine: e}
}

// NewDefaultEchoAdapter creates an Echo instance with recovery middleware
func NewDefaultEchoAdapter() *EchoAdapter {
	e := echo.New()
	e.Use(middleware.Recover())
	return NewEchoAdapter(e)
}

// RegisterRoute adds a route. ANY registers every method.
func (ea *EchoAdapter) RegisterRoute(method string, path nimbus.Path, handler nimbus.HandlerFunc, middlewares ...nimbus.MiddlewareFunc) {
	h := wrap(handler, middlewares)
	echoHandler := func(c echo.Context) error {
		return h(&EchoRequestContext{context: c})
	}

	route := path.Format(false)
	if strings.EqualFold(method, "ANY") {
		ea.engine.Any(route, echoHandler)
		return
	}
	ea.engine.Add(strings.ToUpper(method), route, echoHandler)
}

// Use applies middleware to every route registered afterwards
func (ea *EchoAdapter) Use(mw nimbus.MiddlewareFunc) {
	ea.engine.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		h := mw(func(ctx nimbus.RequestContext) error {
			return next(ctx.(*EchoRequestContext).context)
		})
		return func(c echo.Context) error {
			return h(&EchoRequestContext{context: c})
		}
	})
}

func (ea *EchoAdapter) Start(addr string) error {
	if err := ea.engine.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ea *EchoAdapter) Stop(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

func (ea *EchoAdapter) Name() string {
	return "Echo"
}

// ServeHTTP lets the adapter sit behind net/http and the API Gateway proxy
func (ea *EchoAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ea.engine.ServeHTTP(w, r)
}

// GetEngine returns the underlying Echo instance
func (ea *EchoAdapter) GetEngine() *echo.Echo {
	return ea.engine
}

func echoErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, map[string]interface{}{"message": he.Message})
		return
	}
	code, body := nimbus.StatusOf(err)
	_ = c.JSON(code, body)
}

// EchoRequestContext implements nimbus.RequestContext over echo.Context
type EchoRequestContext struct {
	context echo.Context
}

func (c *EchoRequestContext) Context() context.Context {
	return c.context.Request().Context()
}

func (c *EchoRequestContext) Method() string { return c.context.Request().Method }
func (c *EchoRequestContext) Path() string   { return c.context.Request().URL.Path }
func (c *EchoRequestContext) RealIP() string { return c.context.RealIP() }

func (c *EchoRequestContext) Param(key string) string {
	if v := c.context.Param(key); v != "" {
		return v
	}
	// greedy parameters are registered as "*"
	return c.context.Param("*")
}

func (c *EchoRequestContext) QueryParam(key string) string {
	return c.context.QueryParam(key)
}

func (c *EchoRequestContext) QueryParams() map[string][]string {
	return c.context.QueryParams()
}

func (c *EchoRequestContext) Header(key string) string {
	return c.context.Request().Header.Get(key)
}

func (c *EchoRequestContext) Body() ([]byte, error) {
	req := c.context.Request()
	if req.Body == nil {
		return nil, nil
	}
	return io.ReadAll(req.Body)
}

func (c *EchoRequestContext) Bind(v interface{}) error {
	if err := c.context.Bind(v); err != nil {
		return nimbus.ErrBadRequest("invalid request body").WithInternal(err)
	}
	return nil
}

func (c *EchoRequestContext) SetHeader(key, value string) {
	c.context.Response().Header().Set(key, value)
}

func (c *EchoRequestContext) JSON(code int, v interface{}) error {
	return c.context.JSON(code, v)
}

func (c *EchoRequestContext) String(code int, s string) error {
	return c.context.String(code, s)
}

func (c *EchoRequestContext) Blob(code int, contentType string, b []byte) error {
	return c.context.Blob(code, contentType, b)
}

func (c *EchoRequestContext) NoContent(code int) error {
	return c.context.NoContent(code)
}

func (c *EchoRequestContext) Get(key string) interface{} {
	return c.context.Get(key)
}

func (c *EchoRequestContext) Set(key string, val interface{}) {
	c.context.Set(key, val)
}
