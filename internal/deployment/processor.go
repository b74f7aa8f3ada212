package deployment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nimbusframework/nimbus-go/internal/annotations"
	"github.com/nimbusframework/nimbus-go/internal/cloudformation"
	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
	"github.com/nimbusframework/nimbus-go/internal/models"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// Config controls how markers are turned into templates
type Config struct {
	ProjectName string
	// Stages receive resources whose markers list no stages
	Stages []string
	// Timestamp names the API Gateway deployment and is recorded in the state
	Timestamp string
	Assemble  bool
}

// deployedFunction is a marked function and its resources per stage
type deployedFunction struct {
	pkg       *models.PackageMetadata
	meta      models.FunctionMetadata
	resources map[string]*cloudformation.Function
}

// Processor builds per-stage CloudFormation templates and the nimbus state from scanned packages
type Processor struct {
	config    Config
	state     *models.NimbusState
	files     map[string]*cloudformation.Files
	env       *Environment
	stores    *stores
	functions map[string]*deployedFunction
	order     []string
}

// NewProcessor creates a processor. A config without stages deploys to "dev".
func NewProcessor(config Config) *Processor {
	if len(config.Stages) == 0 {
		config.Stages = []string{"dev"}
	}
	state := models.NewNimbusState(config.ProjectName, config.Timestamp, config.Assemble)
	files := make(map[string]*cloudformation.Files)
	env := NewEnvironment(config.ProjectName, config.Timestamp, files, state)

	return &Processor{
		config:    config,
		state:     state,
		files:     files,
		env:       env,
		stores:    newStores(env),
		functions: make(map[string]*deployedFunction),
	}
}

// Process adds every data model, function and permission of the packages. Problems are
// collected so one run reports all of them.
func (p *Processor) Process(packages []*models.PackageMetadata) error {
	errs := nimbuserrors.NewMultipleErrors()
	collect := func(err error) {
		if err == nil {
			return
		}
		if multi, ok := err.(*nimbuserrors.MultipleErrors); ok {
			for _, e := range multi.Errors {
				errs.Add(e)
			}
			return
		}
		if ne, ok := err.(nimbuserrors.NimbusError); ok {
			errs.Add(ne)
			return
		}
		errs.Add(nimbuserrors.Wrap(nimbuserrors.DeploymentErrorCode, "deployment failed", err))
	}

	for _, pkg := range packages {
		for _, model := range pkg.DataModels {
			collect(p.stores.add(model))
		}
	}
	for _, pkg := range packages {
		for _, model := range pkg.DataModels {
			collect(p.stores.createDeclared(model, p.config.Stages))
		}
	}

	for _, pkg := range packages {
		for _, fn := range pkg.Functions {
			collect(p.deployFunction(pkg, fn))
		}
	}

	for _, name := range p.order {
		collect(p.processUses(p.functions[name]))
	}

	return errs.ErrorOrNil()
}

// Files returns the template pairs keyed by stage
func (p *Processor) Files() map[string]*cloudformation.Files {
	return p.files
}

// Stages returns the stages that received templates, sorted
func (p *Processor) Stages() []string {
	stages := make([]string, 0, len(p.files))
	for stage := range p.files {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	return stages
}

// State returns the nimbus state built so far
func (p *Processor) State() *models.NimbusState {
	return p.state
}

// stagesFor expands an empty stage list to the configured stages
func (p *Processor) stagesFor(stages []string) []string {
	if len(stages) == 0 {
		return p.config.Stages
	}
	return stages
}

func (p *Processor) deployFunction(pkg *models.PackageMetadata, fn models.FunctionMetadata) error {
	name := fn.Name()
	if existing, ok := p.functions[name]; ok {
		return nimbuserrors.DeploymentError(name,
			fmt.Sprintf("function name is also used in package %s", existing.pkg.PackageName)).
			WithLocation(nimbuserrors.SourceLocation{File: fn.FileName, Line: fn.Line}).
			WithSuggestion("Function names are Receiver.Method and must be unique across the project")
	}

	deployed := &deployedFunction{pkg: pkg, meta: fn, resources: make(map[string]*cloudformation.Function)}
	p.functions[name] = deployed
	p.order = append(p.order, name)

	byStage := make(map[string][]models.Annotation)
	var stages []string
	for _, trigger := range fn.Triggers {
		for _, stage := range p.stagesFor(trigger.Stages()) {
			if _, ok := byStage[stage]; !ok {
				stages = append(stages, stage)
			}
			byStage[stage] = append(byStage[stage], trigger)
		}
	}
	sort.Strings(stages)

	errs := nimbuserrors.NewMultipleErrors()
	for _, stage := range stages {
		triggers := byStage[stage]

		timeout, memory := 0, 0
		for _, trigger := range triggers {
			timeout = max(timeout, trigger.GetInt("timeout", annotations.DefaultTimeout))
			memory = max(memory, trigger.GetInt("memory", annotations.DefaultMemory))
		}

		function, err := p.env.NewFunction(name, stage, timeout, memory)
		if err != nil {
			errs.Add(at(err, nimbuserrors.SourceLocation{File: fn.FileName, Line: fn.Line}))
			continue
		}
		deployed.resources[stage] = function

		for _, trigger := range triggers {
			if err := p.addTrigger(trigger, function); err != nil {
				errs.Add(located(err, trigger))
			}
		}

		p.state.AddFunction(stage, models.FunctionInformation{
			Name:         name,
			FunctionName: function.FunctionName,
			Trigger:      fn.Kind.String(),
			Timeout:      timeout,
			Memory:       memory,
		})
	}

	p.state.AddHandlerFile(models.HandlerInformation{
		HandlerPackage:      handlerPackage(pkg),
		HandlerFile:         ArtifactFile,
		ReplacementVariable: ReplacementVariable(ArtifactFile),
		Stages:              stages,
	})

	return errs.ErrorOrNil()
}

func (p *Processor) addTrigger(trigger models.Annotation, function *cloudformation.Function) error {
	switch trigger.Type {
	case annotations.HTTPAnnotation:
		if origin := trigger.GetString("allowedCorsOrigin"); origin != "" {
			function.AddEnvVariable(nimbus.EnvAllowedCorsOrigin, origin)
		}
		return p.env.NewHTTPMethod(strings.ToUpper(trigger.GetString("method")), trigger.GetString("path"), function)

	case annotations.QueueAnnotation:
		if _, err := p.env.NewQueueTrigger(trigger.GetString("queue"), trigger.GetInt("batchSize"), function); err != nil {
			return err
		}

	case annotations.DocumentStoreAnnotation:
		table, err := p.stores.table(documentStore, trigger.GetString("dataModel"), function.Stage)
		if err != nil {
			return err
		}
		return p.env.NewStoreTrigger(table.Table, strings.ToUpper(trigger.GetString("method")), function)

	case annotations.NotificationAnnotation:
		p.env.NewNotificationTrigger(trigger.GetString("topic"), function)

	case annotations.BasicAnnotation:
		if cron := trigger.GetString("cron"); cron != "" {
			return p.env.NewCronTrigger(cron, function)
		}

	default:
		return nimbuserrors.DeploymentError(function.Name, fmt.Sprintf("%s is not a trigger marker", trigger.Type))
	}
	return nil
}

// located attaches the marker's position to errors that lack one
func located(err error, marker models.Annotation) nimbuserrors.NimbusError {
	return at(err, nimbuserrors.SourceLocation{File: marker.FileName, Line: marker.Line})
}

func at(err error, loc nimbuserrors.SourceLocation) nimbuserrors.NimbusError {
	if be, ok := err.(*nimbuserrors.BaseError); ok {
		if be.Loc.IsEmpty() {
			be.WithLocation(loc)
		}
		return be
	}
	return nimbuserrors.Wrap(nimbuserrors.DeploymentErrorCode, "deployment failed", err).WithLocation(loc)
}

func handlerPackage(pkg *models.PackageMetadata) string {
	if pkg.ImportPath != "" {
		return pkg.ImportPath
	}
	return pkg.PackagePath
}
