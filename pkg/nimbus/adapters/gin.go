package adapters

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// GinAdapter mounts nimbus HTTP functions on a Gin engine
type GinAdapter struct {
	engine *gin.Engine

	mu     sync.Mutex
	server *http.Server
}

// NewGinAdapter wraps an existing Gin engine
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	return &GinAdapter{engine: g}
}

// NewDefaultGinAdapter creates a release-mode engine with recovery middleware
func NewDefaultGinAdapter() *GinAdapter {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	return NewGinAdapter(engine)
}

// RegisterRoute adds a route. Greedy parameters become named catch-alls.
func (ga *GinAdapter) RegisterRoute(method string, path nimbus.Path, handler nimbus.HandlerFunc, middlewares ...nimbus.MiddlewareFunc) {
	ginHandler := ginHandler(wrap(handler, middlewares))
	route := path.Format(true)
	if strings.EqualFold(method, "ANY") {
		ga.engine.Any(route, ginHandler)
		return
	}
	ga.engine.Handle(strings.ToUpper(method), route, ginHandler)
}

// Use applies middleware to every route registered afterwards
func (ga *GinAdapter) Use(mw nimbus.MiddlewareFunc) {
	ga.engine.Use(func(c *gin.Context) {
		next := func(nimbus.RequestContext) error {
			c.Next()
			return nil
		}
		if err := mw(next)(&GinRequestContext{ctx: c}); err != nil {
			code, body := nimbus.StatusOf(err)
			c.AbortWithStatusJSON(code, body)
		}
	})
}

// Start serves until Stop is called
func (ga *GinAdapter) Start(addr string) error {
	ga.mu.Lock()
	ga.server = &http.Server{Addr: addr, Handler: ga.engine}
	server := ga.server
	ga.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully
func (ga *GinAdapter) Stop(ctx context.Context) error {
	ga.mu.Lock()
	server := ga.server
	ga.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (ga *GinAdapter) Name() string {
	return "Gin"
}

// GetEngine returns the underlying Gin engine
func (ga *GinAdapter) GetEngine() *gin.Engine {
	return ga.engine
}

func ginHandler(handler nimbus.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler(&GinRequestContext{ctx: c}); err != nil {
			if c.Writer.Written() {
				return
			}
			code, body := nimbus.StatusOf(err)
			c.JSON(code, body)
		}
	}
}

// GinRequestContext implements nimbus.RequestContext over gin.Context
type GinRequestContext struct {
	ctx *gin.Context
}

func (c *GinRequestContext) Context() context.Context {
	return c.ctx.Request.Context()
}

func (c *GinRequestContext) Method() string { return c.ctx.Request.Method }
func (c *GinRequestContext) Path() string   { return c.ctx.Request.URL.Path }
func (c *GinRequestContext) RealIP() string { return c.ctx.ClientIP() }

// Param strips the leading slash gin keeps on catch-all values
func (c *GinRequestContext) Param(key string) string {
	return strings.TrimPrefix(c.ctx.Param(key), "/")
}

func (c *GinRequestContext) QueryParam(key string) string {
	return c.ctx.Query(key)
}

func (c *GinRequestContext) QueryParams() map[string][]string {
	return c.ctx.Request.URL.Query()
}

func (c *GinRequestContext) Header(key string) string {
	return c.ctx.GetHeader(key)
}

func (c *GinRequestContext) Body() ([]byte, error) {
	if c.ctx.Request.Body == nil {
		return nil, nil
	}
	return io.ReadAll(c.ctx.Request.Body)
}

func (c *GinRequestContext) Bind(v interface{}) error {
	if err := c.ctx.ShouldBind(v); err != nil {
		return nimbus.ErrBadRequest("invalid request body").WithInternal(err)
	}
	return nil
}

func (c *GinRequestContext) SetHeader(key, value string) {
	c.ctx.Header(key, value)
}

func (c *GinRequestContext) JSON(code int, v interface{}) error {
	c.ctx.JSON(code, v)
	return nil
}

func (c *GinRequestContext) String(code int, s string) error {
	c.ctx.String(code, "%s", s)
	return nil
}

func (c *GinRequestContext) Blob(code int, contentType string, b []byte) error {
	c.ctx.Data(code, contentType, b)
	return nil
}

func (c *GinRequestContext) NoContent(code int) error {
	c.ctx.Status(code)
	c.ctx.Writer.WriteHeaderNow()
	return nil
}

func (c *GinRequestContext) Get(key string) interface{} {
	v, _ := c.ctx.Get(key)
	return v
}

func (c *GinRequestContext) Set(key string, val interface{}) {
	c.ctx.Set(key, val)
}
