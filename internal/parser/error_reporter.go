package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nimbusframework/nimbus-go/internal/annotations"
	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
	"github.com/nimbusframework/nimbus-go/internal/models"
)

// ErrorReporter builds located, suggestion-carrying errors for problems found while scanning
type ErrorReporter struct{}

// NewErrorReporter creates a new error reporter
func NewErrorReporter() *ErrorReporter {
	return &ErrorReporter{}
}

// ReportMarkerError wraps a marker parse or validation failure. The first
// located problem supplies the location and suggestion.
func (r *ErrorReporter) ReportMarkerError(target string, err error) nimbuserrors.NimbusError {
	reported := nimbuserrors.Wrapf(nimbuserrors.ValidationErrorCode, err, "invalid marker on %s", target).
		WithContext("target", target)

	var markerErr *annotations.MarkerError
	if !errors.As(err, &markerErr) {
		return reported
	}
	switch markerErr.Kind {
	case annotations.SyntaxErrorCode:
		reported.Code = nimbuserrors.SyntaxErrorCode
	case annotations.SchemaErrorCode:
		reported.Code = nimbuserrors.SchemaErrorCode
	}
	reported.WithLocation(toLocation(markerErr.Loc))
	if markerErr.Hint != "" {
		reported.WithSuggestion(markerErr.Hint)
	}
	return reported
}

// ReportPlacementError reports a marker attached to the wrong kind of declaration
func (r *ErrorReporter) ReportPlacementError(annotation *annotations.ParsedAnnotation, target, declaration string) nimbuserrors.NimbusError {
	expected := "a function or method"
	if annotation.Type.Category() == annotations.ResourceCategory {
		expected = "a type declaration"
	}
	return nimbuserrors.Newf(nimbuserrors.SyntaxErrorCode,
		"nimbus::%s cannot be placed on %s %s", annotation.Type, declaration, target).
		WithLocation(toLocation(annotation.Location)).
		WithSuggestion(fmt.Sprintf("Move the marker onto %s", expected))
}

// ReportMixedTriggers reports a function carrying triggers of more than one kind
func (r *ErrorReporter) ReportMixedTriggers(fn models.FunctionMetadata, first, second models.TriggerKind) nimbuserrors.NimbusError {
	return nimbuserrors.Newf(nimbuserrors.ValidationErrorCode,
		"%s has both %s and %s triggers", fn.Name(), first, second).
		WithLocation(nimbuserrors.SourceLocation{File: fn.FileName, Line: fn.Line}).
		WithSuggestions(
			"A function is invoked by exactly one kind of event source",
			"Split the handler into one function per trigger kind",
		)
}

// ReportUsesWithoutTrigger reports permission markers on a function that is never deployed
func (r *ErrorReporter) ReportUsesWithoutTrigger(fn models.FunctionMetadata) nimbuserrors.NimbusError {
	return nimbuserrors.Newf(nimbuserrors.ValidationErrorCode,
		"%s has uses_* markers but no trigger marker", fn.Name()).
		WithLocation(nimbuserrors.SourceLocation{File: fn.FileName, Line: fn.Line}).
		WithSuggestion("Add a trigger such as //nimbus::basic, or remove the uses_* markers")
}

// ReportSignatureError reports a handler whose signature does not match its trigger kind
func (r *ErrorReporter) ReportSignatureError(fn models.FunctionMetadata, params, results int) nimbuserrors.NimbusError {
	sig := handlerSignatures[fn.Kind]

	var issues []string
	if params != sig.Params {
		issues = append(issues, fmt.Sprintf("takes %d parameters, expected %d", params, sig.Params))
	}
	if results != sig.Results {
		issues = append(issues, fmt.Sprintf("returns %d values, expected %d", results, sig.Results))
	}

	return nimbuserrors.Newf(nimbuserrors.SignatureErrorCode,
		"%s handler %s has an invalid signature: %s", fn.Kind, fn.Name(), strings.Join(issues, ", ")).
		WithLocation(nimbuserrors.SourceLocation{File: fn.FileName, Line: fn.Line}).
		WithContext("expected_signature", sig.Expected).
		WithSuggestions(
			"Expected signature: "+sig.Expected,
			"Example: "+sig.Example,
		)
}

// ReportConstructorError reports a receiver type the generated code cannot instantiate
func (r *ErrorReporter) ReportConstructorError(fn models.FunctionMetadata, reason string) nimbuserrors.NimbusError {
	return nimbuserrors.Newf(nimbuserrors.SignatureErrorCode,
		"cannot construct receiver %s for %s: %s", fn.Receiver, fn.Name(), reason).
		WithLocation(nimbuserrors.SourceLocation{File: fn.FileName, Line: fn.Line}).
		WithSuggestion(fmt.Sprintf("Declare a struct type %s, or a func %s%s() *%s", fn.Receiver, ConstructorPrefix, fn.Receiver, fn.Receiver))
}

func toLocation(loc annotations.SourceLocation) nimbuserrors.SourceLocation {
	return nimbuserrors.SourceLocation{File: loc.File, Line: loc.Line, Column: loc.Column}
}
