package generator

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
	"github.com/nimbusframework/nimbus-go/internal/models"
	"github.com/nimbusframework/nimbus-go/internal/templates"
	"github.com/nimbusframework/nimbus-go/internal/utils"
)

const (
	defaultTimeout = 10
	defaultMemory  = 1024
)

// Generator implements the CodeGenerator interface
type Generator struct {
	utils *templates.TemplateUtils
}

// NewGenerator creates a new code generator instance
func NewGenerator() *Generator {
	return &Generator{utils: templates.NewTemplateUtils()}
}

// triggerShape names the registration constructor and trigger literal of a trigger kind
type triggerShape struct {
	constructor string
	triggerType string
	fields      func(*Generator, models.Annotation) []templates.FieldData
}

var triggerShapes = map[models.TriggerKind]triggerShape{
	models.HTTPTrigger:          {"HTTPFunction", "HTTPTrigger", (*Generator).httpFields},
	models.QueueTrigger:         {"QueueFunction", "QueueTrigger", (*Generator).queueFields},
	models.DocumentStoreTrigger: {"DocumentStoreFunction", "DocumentStoreTrigger", (*Generator).documentStoreFields},
	models.NotificationTrigger:  {"NotificationFunction", "NotificationTrigger", (*Generator).notificationFields},
	models.BasicTrigger:         {"BasicFunction", "BasicTrigger", (*Generator).basicFields},
}

var storeEventConstants = map[string]string{
	"INSERT": "nimbus.StoreInsert",
	"MODIFY": "nimbus.StoreModify",
	"REMOVE": "nimbus.StoreRemove",
}

// GenerateHandlers renders nimbus_handlers.go for a package. Functions are
// registered in source order; methods of one receiver share a single value.
func (g *Generator) GenerateHandlers(metadata *models.PackageMetadata) (*models.GeneratedFile, error) {
	if metadata == nil {
		return nil, fmt.Errorf("metadata cannot be nil")
	}

	data := templates.HandlersFileData{
		PackageName: metadata.PackageName,
		Imports:     []string{templates.NimbusImportPath},
	}
	receivers := make(map[string]string)
	var names []string

	for _, fn := range metadata.Functions {
		if !fn.HasTriggers() {
			continue
		}

		shape, ok := triggerShapes[fn.Kind]
		if !ok {
			return nil, nimbuserrors.Newf(nimbuserrors.GenerationErrorCode, "function %s has no trigger kind", fn.Name()).
				WithLocation(nimbuserrors.SourceLocation{File: fn.FileName, Line: fn.Line})
		}

		handler := fn.Method
		if fn.Receiver != "" {
			varName, seen := receivers[fn.Receiver]
			if !seen {
				varName = g.utils.VarName(fn.Receiver)
				receivers[fn.Receiver] = varName
				data.Receivers = append(data.Receivers, templates.ReceiverData{
					Var:  varName,
					Init: g.utils.ReceiverInit(fn.Receiver, fn.Constructor),
				})
			}
			handler = varName + "." + fn.Method
		}

		function := templates.FunctionData{
			Constructor: shape.constructor,
			Name:        fn.Name(),
			Handler:     handler,
			TriggerType: shape.triggerType,
		}
		for _, trigger := range fn.Triggers {
			function.Triggers = append(function.Triggers, templates.TriggerData{Fields: shape.fields(g, trigger)})
		}

		data.Functions = append(data.Functions, function)
		names = append(names, fn.Name())
	}

	filePath := filepath.Join(metadata.PackagePath, utils.GeneratedFileName)

	content, err := templates.RenderHandlersFile(data)
	if err != nil {
		return nil, nimbuserrors.WrapTemplateError(templates.HandlersFileTemplateName, "render", err)
	}

	formatted, err := utils.FormatGoCode(filePath, []byte(content))
	if err != nil {
		return nil, nimbuserrors.WrapGenerateError(filePath, err)
	}

	return &models.GeneratedFile{
		PackageName: metadata.PackageName,
		FilePath:    filePath,
		Content:     string(formatted),
		Functions:   names,
	}, nil
}

func (g *Generator) httpFields(a models.Annotation) []templates.FieldData {
	fields := []templates.FieldData{
		g.stringField("Method", strings.ToUpper(a.GetString("method"))),
		g.stringField("Path", a.GetString("path")),
	}
	fields = append(fields, g.settingsFields(a)...)
	if origin := a.GetString("allowedCorsOrigin"); origin != "" {
		fields = append(fields, g.stringField("AllowedCorsOrigin", origin))
	}
	return append(fields, g.stagesField(a)...)
}

func (g *Generator) queueFields(a models.Annotation) []templates.FieldData {
	fields := []templates.FieldData{
		g.stringField("Queue", a.GetString("queue")),
		{Name: "BatchSize", Value: strconv.Itoa(a.GetInt("batchSize"))},
	}
	fields = append(fields, g.settingsFields(a)...)
	return append(fields, g.stagesField(a)...)
}

func (g *Generator) documentStoreFields(a models.Annotation) []templates.FieldData {
	method := strings.ToUpper(a.GetString("method"))
	value, ok := storeEventConstants[method]
	if !ok {
		value = "nimbus.StoreEventType(" + g.utils.QuoteString(method) + ")"
	}

	fields := []templates.FieldData{
		g.stringField("DataModel", a.GetString("dataModel")),
		{Name: "Method", Value: value},
	}
	fields = append(fields, g.settingsFields(a)...)
	return append(fields, g.stagesField(a)...)
}

func (g *Generator) notificationFields(a models.Annotation) []templates.FieldData {
	fields := []templates.FieldData{g.stringField("Topic", a.GetString("topic"))}
	fields = append(fields, g.settingsFields(a)...)
	return append(fields, g.stagesField(a)...)
}

func (g *Generator) basicFields(a models.Annotation) []templates.FieldData {
	var fields []templates.FieldData
	if cron := a.GetString("cron"); cron != "" {
		fields = append(fields, g.stringField("Cron", cron))
	}
	fields = append(fields, g.settingsFields(a)...)
	return append(fields, g.stagesField(a)...)
}

// settingsFields emits Timeout and Memory only when they differ from the defaults
func (g *Generator) settingsFields(a models.Annotation) []templates.FieldData {
	var fields []templates.FieldData
	if timeout := a.GetInt("timeout"); timeout != 0 && timeout != defaultTimeout {
		fields = append(fields, templates.FieldData{Name: "Timeout", Value: strconv.Itoa(timeout)})
	}
	if memory := a.GetInt("memory"); memory != 0 && memory != defaultMemory {
		fields = append(fields, templates.FieldData{Name: "Memory", Value: strconv.Itoa(memory)})
	}
	return fields
}

func (g *Generator) stagesField(a models.Annotation) []templates.FieldData {
	stages := a.Stages()
	if len(stages) == 0 {
		return nil
	}
	return []templates.FieldData{{Name: "Stages", Value: g.utils.StringSlice(stages)}}
}

func (g *Generator) stringField(name, value string) templates.FieldData {
	return templates.FieldData{Name: name, Value: g.utils.QuoteString(value)}
}
