package adapters

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// serve runs one request through an adapter without opening a socket
type serve func(req *http.Request) (*http.Response, error)

func testServers(t *testing.T) map[string]struct {
	server nimbus.Server
	serve  serve
} {
	t.Helper()

	echoAdapter := NewDefaultEchoAdapter()
	ginAdapter := NewDefaultGinAdapter()
	fiberAdapter := NewDefaultFiberAdapter()

	recorded := func(h http.Handler) serve {
		return func(req *http.Request) (*http.Response, error) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec.Result(), nil
		}
	}

	return map[string]struct {
		server nimbus.Server
		serve  serve
	}{
		"echo":  {echoAdapter, recorded(echoAdapter)},
		"gin":   {ginAdapter, recorded(ginAdapter.GetEngine())},
		"fiber": {fiberAdapter, func(req *http.Request) (*http.Response, error) { return fiberAdapter.GetApp().Test(req, -1) }},
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return strings.TrimSpace(string(b))
}

func TestAdapters_Routes(t *testing.T) {
	for name, tc := range testServers(t) {
		t.Run(name, func(t *testing.T) {
			tc.server.RegisterRoute("GET", "/users/{id}", func(c nimbus.RequestContext) error {
				return c.JSON(http.StatusOK, map[string]string{
					"id":     c.Param("id"),
					"filter": c.QueryParam("filter"),
					"method": c.Method(),
				})
			})
			tc.server.RegisterRoute("POST", "/users", func(c nimbus.RequestContext) error {
				var body struct {
					Name string `json:"name"`
				}
				if err := c.Bind(&body); err != nil {
					return err
				}
				return c.String(http.StatusCreated, body.Name)
			})
			tc.server.RegisterRoute("GET", "/files/{key+}", func(c nimbus.RequestContext) error {
				return c.Blob(http.StatusOK, "text/plain", []byte(c.Param("key")))
			})

			resp, err := tc.serve(httptest.NewRequest(http.MethodGet, "/users/42?filter=active", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"id":"42","filter":"active","method":"GET"}`, readBody(t, resp))

			req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"name":"ada"}`))
			req.Header.Set("Content-Type", "application/json")
			resp, err = tc.serve(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.Equal(t, "ada", readBody(t, resp))

			resp, err = tc.serve(httptest.NewRequest(http.MethodGet, "/files/a/b.txt", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "a/b.txt", readBody(t, resp))
		})
	}
}

func TestAdapters_Errors(t *testing.T) {
	for name, tc := range testServers(t) {
		t.Run(name, func(t *testing.T) {
			tc.server.RegisterRoute("GET", "/missing", func(c nimbus.RequestContext) error {
				return nimbus.ErrNotFound("no such user")
			})
			tc.server.RegisterRoute("GET", "/broken", func(c nimbus.RequestContext) error {
				return errors.New("database is down")
			})

			resp, err := tc.serve(httptest.NewRequest(http.MethodGet, "/missing", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.JSONEq(t, `{"message":"no such user"}`, readBody(t, resp))

			resp, err = tc.serve(httptest.NewRequest(http.MethodGet, "/broken", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.NotContains(t, readBody(t, resp), "database")
		})
	}
}

func TestAdapters_Middleware(t *testing.T) {
	for name, tc := range testServers(t) {
		t.Run(name, func(t *testing.T) {
			var order []string
			trace := func(label string) nimbus.MiddlewareFunc {
				return func(next nimbus.HandlerFunc) nimbus.HandlerFunc {
					return func(c nimbus.RequestContext) error {
						order = append(order, label)
						return next(c)
					}
				}
			}

			tc.server.Use(trace("global"))
			tc.server.RegisterRoute("GET", "/ping", func(c nimbus.RequestContext) error {
				order = append(order, "handler")
				return c.NoContent(http.StatusNoContent)
			}, trace("first"), trace("second"), CORS("*"))

			resp, err := tc.serve(httptest.NewRequest(http.MethodGet, "/ping", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusNoContent, resp.StatusCode)
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
			assert.Equal(t, []string{"global", "first", "second", "handler"}, order)
		})
	}
}

func TestMount(t *testing.T) {
	server := NewDefaultEchoAdapter()
	hello := func(c nimbus.RequestContext) error { return c.String(http.StatusOK, "hello") }

	mounted := Mount(server, "dev",
		nimbus.HTTPFunction("Hello.Get", hello,
			nimbus.HTTPTrigger{Method: "GET", Path: "/hello", AllowedCorsOrigin: "https://example.com"},
			nimbus.HTTPTrigger{Method: "GET", Path: "/prod-only", Stages: []string{"prod"}},
		),
		nimbus.BasicFunction("Jobs.Run", nil),
	)
	assert.Equal(t, 1, mounted)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prod-only", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		wantErr  bool
	}{
		{name: "", expected: "Echo"},
		{name: "echo", expected: "Echo"},
		{name: "Gin", expected: "Gin"},
		{name: "fiber", expected: "Fiber"},
		{name: "chi", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := New(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, server.Name())
		})
	}
}
