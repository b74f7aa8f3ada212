package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
)

// DiagnosticReporter provides user-friendly error reporting and diagnostics
type DiagnosticReporter struct {
	verbose bool
	out     io.Writer
}

// NewDiagnosticReporter creates a reporter writing to out
func NewDiagnosticReporter(out io.Writer, verbose bool) *DiagnosticReporter {
	return &DiagnosticReporter{
		verbose: verbose,
		out:     out,
	}
}

// ReportWarning prints a single warning line
func (r *DiagnosticReporter) ReportWarning(message string) {
	color.New(color.FgYellow, color.Bold).Fprint(r.out, "! ")
	fmt.Fprintf(r.out, "%s\n", message)
}

// ReportError prints every problem carried by err, with locations and suggestions
func (r *DiagnosticReporter) ReportError(err error) {
	if err == nil {
		return
	}

	problems := r.collect(err)
	title := "ERROR: Generation Failed"
	if len(problems) > 1 {
		title = fmt.Sprintf("ERROR: Generation Failed (%d problems)", len(problems))
	}
	fmt.Fprintf(r.out, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))

	for i, problem := range problems {
		if len(problems) > 1 {
			fmt.Fprintf(r.out, "%d) ", i+1)
		}
		if ne, ok := problem.(nimbuserrors.NimbusError); ok {
			r.reportNimbusError(ne)
		} else {
			r.reportBasicError(problem)
		}
	}
}

// collect flattens multiple-error values into individual problems
func (r *DiagnosticReporter) collect(err error) []error {
	var multi *nimbuserrors.MultipleErrors
	if errors.As(err, &multi) && multi.Count() > 0 {
		problems := make([]error, 0, multi.Count())
		for _, e := range multi.Errors {
			problems = append(problems, r.collect(e)...)
		}
		return problems
	}

	var ne nimbuserrors.NimbusError
	if errors.As(err, &ne) {
		return []error{ne}
	}
	return []error{err}
}

func (r *DiagnosticReporter) reportNimbusError(err nimbuserrors.NimbusError) {
	header := errorTitle(err.ErrorCode())
	color.New(color.FgRed, color.Bold).Fprintf(r.out, "%s\n", header)

	message := err.Error()
	if base, ok := err.(*nimbuserrors.BaseError); ok {
		message = base.Message
		if base.Cause != nil {
			message = fmt.Sprintf("%s\n   Cause: %v", message, base.Cause)
		}
	}
	fmt.Fprintf(r.out, "   %s\n", message)

	if loc := err.Location(); !loc.IsEmpty() {
		fmt.Fprintf(r.out, "   Location: %s\n", loc.String())
	}

	if r.verbose {
		r.printContext(err.Context())
	}
	r.printSuggestions(err.Suggestions())
	fmt.Fprintln(r.out)
}

func (r *DiagnosticReporter) reportBasicError(err error) {
	color.New(color.FgRed, color.Bold).Fprintln(r.out, "Error")
	fmt.Fprintf(r.out, "   %s\n", err.Error())

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "go.mod") || strings.Contains(msg, "module"):
		r.printSuggestions([]string{
			"Check your go.mod file",
			"Try specifying -module explicitly",
		})
	case strings.Contains(msg, "marker") || strings.Contains(msg, "nimbus::"):
		r.printSuggestions([]string{
			"Markers must start with //nimbus:: and sit directly above the declaration",
		})
	}
	fmt.Fprintln(r.out)
}

// printContext prints context keys in a stable order
func (r *DiagnosticReporter) printContext(context map[string]interface{}) {
	if len(context) == 0 {
		return
	}
	keys := make([]string, 0, len(context))
	for key := range context {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Fprintf(r.out, "   Context:\n")
	for _, key := range keys {
		fmt.Fprintf(r.out, "      %s: %v\n", formatContextKey(key), context[key])
	}
}

// printSuggestions prints actionable suggestions
func (r *DiagnosticReporter) printSuggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintf(r.out, "   Suggestions:\n")
	for _, suggestion := range suggestions {
		lines := strings.Split(suggestion, "\n")
		fmt.Fprintf(r.out, "    - %s\n", lines[0])
		for _, line := range lines[1:] {
			if strings.TrimSpace(line) != "" {
				fmt.Fprintf(r.out, "      %s\n", line)
			}
		}
	}
}

func errorTitle(code nimbuserrors.ErrorCode) string {
	switch code {
	case nimbuserrors.SyntaxErrorCode:
		return "Marker Syntax Error"
	case nimbuserrors.ValidationErrorCode:
		return "Marker Validation Error"
	case nimbuserrors.SignatureErrorCode:
		return "Handler Signature Error"
	case nimbuserrors.DeploymentErrorCode:
		return "Deployment Error"
	case nimbuserrors.InvalidStageErrorCode:
		return "Invalid Stage"
	case nimbuserrors.DependencyErrorCode:
		return "Dependency Error"
	case nimbuserrors.GenerationErrorCode, nimbuserrors.TemplateErrorCode:
		return "Code Generation Error"
	case nimbuserrors.FileSystemErrorCode:
		return "File System Error"
	case nimbuserrors.ConfigurationErrorCode:
		return "Configuration Error"
	default:
		return code.String()
	}
}

// formatContextKey converts snake_case keys to Title Case
func formatContextKey(key string) string {
	parts := strings.Split(key, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, " ")
}
