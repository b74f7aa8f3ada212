package nimbus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// RequestContext provides a framework-agnostic view of one HTTP request and its response
type RequestContext interface {
	Context() context.Context

	// Request data
	Method() string
	Path() string
	RealIP() string
	Param(key string) string
	QueryParam(key string) string
	QueryParams() map[string][]string
	Header(key string) string
	Body() ([]byte, error)
	Bind(v interface{}) error

	// Response
	SetHeader(key, value string)
	JSON(code int, v interface{}) error
	String(code int, s string) error
	Blob(code int, contentType string, b []byte) error
	NoContent(code int) error

	// Request-scoped values
	Get(key string) interface{}
	Set(key string, val interface{})
}

// HandlerFunc handles an HTTP triggered function invocation
type HandlerFunc func(RequestContext) error

// MiddlewareFunc wraps a handler
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Server is a web framework that HTTP triggers can be mounted on
type Server interface {
	RegisterRoute(method string, path Path, handler HandlerFunc, middlewares ...MiddlewareFunc)
	Use(middleware MiddlewareFunc)

	Start(addr string) error
	Stop(ctx context.Context) error

	Name() string
}

// HTTPError is returned by handlers to answer with a specific status code
type HTTPError struct {
	Code     int         `json:"code"`
	Message  interface{} `json:"message"`
	Internal error       `json:"-"`
}

func (he *HTTPError) Error() string {
	if he.Internal != nil {
		return fmt.Sprintf("HTTP %d: %v: %v", he.Code, he.Message, he.Internal)
	}
	return fmt.Sprintf("HTTP %d: %v", he.Code, he.Message)
}

func (he *HTTPError) Unwrap() error {
	return he.Internal
}

// NewHTTPError creates an HTTPError; the message defaults to the status text
func NewHTTPError(code int, message ...interface{}) *HTTPError {
	he := &HTTPError{Code: code, Message: http.StatusText(code)}
	if len(message) > 0 {
		he.Message = message[0]
	}
	return he
}

// WithInternal attaches the error that caused the response
func (he *HTTPError) WithInternal(err error) *HTTPError {
	he.Internal = err
	return he
}

func ErrBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message)
}

func ErrUnauthorized(message string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message)
}

func ErrForbidden(message string) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message)
}

func ErrNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message)
}

func ErrConflict(message string) *HTTPError {
	return NewHTTPError(http.StatusConflict, message)
}

func ErrInternalServerError(message string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message)
}

// StatusOf maps a handler error to a response status and body. Errors that
// do not wrap an HTTPError become a bare 500.
func StatusOf(err error) (int, interface{}) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Code, map[string]interface{}{"message": he.Message}
	}
	return http.StatusInternalServerError, map[string]interface{}{"message": http.StatusText(http.StatusInternalServerError)}
}
