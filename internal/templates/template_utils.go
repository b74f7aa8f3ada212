package templates

import (
	"go/token"
	"strconv"
	"strings"
)

// TemplateUtils provides common utilities for template generation
type TemplateUtils struct{}

// NewTemplateUtils creates a new template utilities instance
func NewTemplateUtils() *TemplateUtils {
	return &TemplateUtils{}
}

// ToCamelCase converts a string to camelCase
func (tu *TemplateUtils) ToCamelCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// VarName returns a local variable name for a receiver type, avoiding Go keywords
func (tu *TemplateUtils) VarName(typeName string) string {
	name := tu.ToCamelCase(typeName)
	if token.IsKeyword(name) {
		return name + "Receiver"
	}
	return name
}

// QuoteString returns a Go string literal
func (tu *TemplateUtils) QuoteString(s string) string {
	return strconv.Quote(s)
}

// StringSlice returns a []string literal
func (tu *TemplateUtils) StringSlice(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = tu.QuoteString(item)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}

// ReceiverInit returns the expression that builds a receiver: its zero-argument
// constructor when there is one, otherwise a pointer to the zero value.
func (tu *TemplateUtils) ReceiverInit(typeName, constructor string) string {
	if constructor != "" {
		return constructor + "()"
	}
	return "&" + typeName + "{}"
}
