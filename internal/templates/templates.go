package templates

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/nimbusframework/nimbus-go/internal/utils"
)

const (
	HandlersFileTemplateName = "handlers-file"
	FunctionTemplateName     = "function"

	// GeneratedHeader marks files written by the generator
	GeneratedHeader = utils.GeneratedHeader

	// NimbusImportPath is the registration API imported by generated files
	NimbusImportPath = "github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// HandlersFileTemplate renders nimbus_handlers.go
const HandlersFileTemplate = GeneratedHeader + `

package {{.PackageName}}

import (
{{- range .Imports}}
	{{quote .}}
{{- end}}
)

// NimbusFunctions returns the serverless functions declared in package {{.PackageName}}.
func NimbusFunctions() []nimbus.Function {
{{- range .Receivers}}
	{{.Var}} := {{.Init}}
{{- end}}

	return []nimbus.Function{
{{- range .Functions}}
{{template "function" .}}
{{- end}}
	}
}
`

// FunctionTemplate renders one constructor call with its trigger literals
const FunctionTemplate = `		nimbus.{{.Constructor}}({{quote .Name}}, {{.Handler}},
{{- $type := .TriggerType}}
{{- range .Triggers}}
			nimbus.{{$type}}{ {{- fields .Fields -}} },
{{- end}}
		),`

// HandlersFileData is the data rendered into a package's registration file
type HandlersFileData struct {
	PackageName string
	Imports     []string
	Receivers   []ReceiverData
	Functions   []FunctionData
}

// ReceiverData is a receiver value shared by the methods registered from it
type ReceiverData struct {
	Var  string
	Init string // NewX() or &X{}
}

// FunctionData is one registered function
type FunctionData struct {
	Constructor string // HTTPFunction, QueueFunction, ...
	Name        string
	Handler     string
	TriggerType string // HTTPTrigger, QueueTrigger, ...
	Triggers    []TriggerData
}

// TriggerData is one trigger literal
type TriggerData struct {
	Fields []FieldData
}

// FieldData is a struct field of a trigger literal. Value is Go source.
type FieldData struct {
	Name  string
	Value string
}

// handlersTemplate parses the registration file templates once per process
var handlersTemplate = sync.OnceValues(func() (*template.Template, error) {
	tmpl, err := template.New(HandlersFileTemplateName).Funcs(funcMap()).Parse(HandlersFileTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", HandlersFileTemplateName, err)
	}
	if _, err := tmpl.New(FunctionTemplateName).Parse(FunctionTemplate); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", FunctionTemplateName, err)
	}
	return tmpl, nil
})

// RenderHandlersFile renders the registration file of a package
func RenderHandlersFile(data HandlersFileData) (string, error) {
	tmpl, err := handlersTemplate()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", HandlersFileTemplateName, err)
	}
	return buf.String(), nil
}

func funcMap() template.FuncMap {
	utils := NewTemplateUtils()
	return template.FuncMap{
		"quote":  utils.QuoteString,
		"fields": joinFields,
	}
}

func joinFields(fields []FieldData) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Name+": "+f.Value)
	}
	return strings.Join(parts, ", ")
}
