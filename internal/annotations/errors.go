package annotations

import (
	"fmt"
	"slices"
	"strings"
)

// ErrorCode classifies a MarkerError
type ErrorCode int

const (
	SyntaxErrorCode ErrorCode = iota
	ValidationErrorCode
	SchemaErrorCode
)

func (e ErrorCode) String() string {
	switch e {
	case SyntaxErrorCode:
		return "syntax error"
	case ValidationErrorCode:
		return "invalid parameter"
	case SchemaErrorCode:
		return "schema error"
	}
	return "error"
}

// MarkerError is a problem with one marker comment. Parameter is set when a
// single parameter is at fault.
type MarkerError struct {
	Kind      ErrorCode
	Parameter string
	Msg       string
	Loc       SourceLocation
	Hint      string
}

func (e *MarkerError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Loc, e.Kind)
	if e.Parameter != "" {
		fmt.Fprintf(&b, " -%s", e.Parameter)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Hint != "" {
		b.WriteString(". ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func syntaxError(loc SourceLocation, hint, format string, args ...interface{}) *MarkerError {
	return &MarkerError{Kind: SyntaxErrorCode, Msg: fmt.Sprintf(format, args...), Loc: loc, Hint: hint}
}

func parameterError(loc SourceLocation, name, hint, format string, args ...interface{}) *MarkerError {
	return &MarkerError{Kind: ValidationErrorCode, Parameter: name, Msg: fmt.Sprintf(format, args...), Loc: loc, Hint: hint}
}

// MarkerErrors is every problem found while validating one marker
type MarkerErrors []*MarkerError

func (e MarkerErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	lines := make([]string, len(e))
	for i, err := range e {
		lines[i] = err.Error()
	}
	return fmt.Sprintf("%d problems:\n%s", len(e), strings.Join(lines, "\n"))
}

func (e MarkerErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// HasParameter reports whether any problem concerns the named parameter
func (e MarkerErrors) HasParameter(name string) bool {
	return slices.ContainsFunc(e, func(err *MarkerError) bool { return err.Parameter == name })
}

// parameterHint names the closest known parameter to an unknown one
func parameterHint(unknown string, schema AnnotationSchema) string {
	known := sortedNames(schema.Parameters)
	if i := slices.IndexFunc(known, func(name string) bool { return strings.EqualFold(name, unknown) }); i >= 0 {
		return fmt.Sprintf("Parameter names are case sensitive, did you mean -%s?", known[i])
	}
	if name, ok := closest(strings.ToLower(unknown), known, strings.ToLower); ok {
		return fmt.Sprintf("Did you mean -%s?", name)
	}
	return fmt.Sprintf("%s supports: %s", schema.Type, strings.Join(known, ", "))
}

// typeSuggestion names the closest marker keyword for an unknown one
func typeSuggestion(unknown string) string {
	if name, ok := closest(strings.ToLower(unknown), keywords[:], nil); ok {
		return fmt.Sprintf("Did you mean nimbus::%s?", name)
	}
	return "Use one of: " + strings.Join(keywords[:], ", ")
}

// closest returns the first candidate within two edits of word
func closest(word string, candidates []string, normalize func(string) string) (string, bool) {
	for _, candidate := range candidates {
		compared := candidate
		if normalize != nil {
			compared = normalize(candidate)
		}
		if editDistance(compared, word) <= 2 {
			return candidate, true
		}
	}
	return "", false
}

func editDistance(a, b string) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			diag, row[j] = row[j], min(row[j]+1, row[j-1]+1, diag+cost)
		}
	}
	return row[len(b)]
}
