package deployment

import (
	"fmt"

	"github.com/nimbusframework/nimbus-go/internal/cloudformation"
	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
	"github.com/nimbusframework/nimbus-go/internal/models"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

const (
	// ArtifactFile is the zipped bootstrap binary every function of a project runs
	ArtifactFile = "bootstrap.zip"

	restAPIExportMessage = "Created REST API. Base URL is "
	restAPIExportValue   = "${NIMBUS_REST_API_URL}"

	// queues only used by uses_queue markers get the timeout of a default consumer
	defaultVisibilityTimeout = nimbus.DefaultTimeout * visibilityTimeoutFactor
	visibilityTimeoutFactor  = 6
)

// ReplacementVariable is the placeholder deployment tooling replaces with the uploaded artifact key
func ReplacementVariable(file string) string {
	return "${" + file + "}"
}

// Environment adds the resources of functions and their triggers to the per-stage templates
type Environment struct {
	project   string
	timestamp string
	files     map[string]*cloudformation.Files
	state     *models.NimbusState
	// deployed maps stage and physical function name to the handler deployed under it
	deployed map[string]map[string]string
}

// NewEnvironment creates an environment writing into files and recording exports on state
func NewEnvironment(project, timestamp string, files map[string]*cloudformation.Files, state *models.NimbusState) *Environment {
	return &Environment{
		project:   project,
		timestamp: timestamp,
		files:     files,
		state:     state,
		deployed:  make(map[string]map[string]string),
	}
}

// Files returns the template pair of a stage, creating it on first use
func (e *Environment) Files(stage string) *cloudformation.Files {
	f, ok := e.files[stage]
	if !ok {
		f = cloudformation.NewFiles(e.project, stage)
		e.files[stage] = f
		e.state.AddStage(stage)
	}
	return f
}

// NewFunction adds a function with its role, log group and the deployment bucket.
// Two handlers whose names map to the same logical id or the same physical
// function name cannot be deployed side by side.
func (e *Environment) NewFunction(name, stage string, timeout, memory int) (*cloudformation.Function, error) {
	files := e.Files(stage)
	bucket := files.Update.Ensure(cloudformation.NewDeploymentBucket()).(*cloudformation.DeploymentBucket)
	files.Create.Ensure(bucket)

	function := cloudformation.NewFunction(name, nimbus.FunctionName(e.project, stage, name), stage,
		timeout, memory, ReplacementVariable(ArtifactFile), bucket)

	if existing, ok := files.Update.Get(function.LogicalID()); ok {
		if other, isFunction := existing.(*cloudformation.Function); isFunction {
			return nil, collision(name, other.Name, "logical id "+function.LogicalID())
		}
	}
	if other, ok := e.deployed[stage][function.FunctionName]; ok {
		return nil, collision(name, other, "function name "+function.FunctionName)
	}

	logGroup := cloudformation.NewLogGroup(function)
	role := cloudformation.NewIAMRole(function)
	role.AddAllowStatement("logs:CreateLogStream", logGroup, ":*")
	role.AddAllowStatement("logs:PutLogEvents", logGroup, ":*:*")
	function.SetRole(role, logGroup)

	function.AddEnvVariable(nimbus.EnvStage, stage)
	function.AddEnvVariable(nimbus.EnvProjectName, e.project)
	function.AddEnvVariable(nimbus.EnvFunction, name)

	for _, r := range []cloudformation.Resource{role, function, logGroup} {
		if err := files.Update.AddResource(r); err != nil {
			return nil, nimbuserrors.DeploymentError(name, err.Error())
		}
	}
	if e.deployed[stage] == nil {
		e.deployed[stage] = make(map[string]string)
	}
	e.deployed[stage][function.FunctionName] = name

	output := bucket.NameOutput(e.project, stage)
	files.Create.AddOutput(output)
	files.Update.AddOutput(output)

	return function, nil
}

func collision(name, other, what string) error {
	return nimbuserrors.DeploymentError(name,
		fmt.Sprintf("%s and %s both deploy as %s", other, name, what)).
		WithSuggestion("Rename one of the handlers")
}

// NewHTTPMethod routes method and path to the function through the stage's REST API.
// A method and path can be routed to one function only.
func (e *Environment) NewHTTPMethod(method, path string, function *cloudformation.Function) error {
	files := e.Files(function.Stage)

	if files.RestAPI == nil {
		files.RestAPI = files.Update.Ensure(cloudformation.NewRestAPI(e.project, function.Stage)).(*cloudformation.RestAPI)

		output := files.RestAPI.URLOutput(e.project, function.Stage)
		files.Update.AddOutput(output)
		e.state.AddExport(function.Stage, models.ExportInformation{
			ExportName:    output.ExportName,
			ExportMessage: restAPIExportMessage,
			Value:         restAPIExportValue,
		})
	}
	api := files.RestAPI

	if files.Deployment == nil {
		files.Deployment = files.Update.Ensure(
			cloudformation.NewAPIGatewayDeployment(api, function.Stage, e.timestamp)).(*cloudformation.APIGatewayDeployment)
	}

	var parent cloudformation.RestParent = api
	for _, segment := range nimbus.Path(path).Segments() {
		parent = files.Update.Ensure(cloudformation.NewRestResource(api, parent, segment)).(cloudformation.RestParent)
	}

	restMethod := cloudformation.NewRestMethod(api, parent, method, function)
	if err := files.Update.AddResource(restMethod); err != nil {
		return fmt.Errorf("%s %s is already routed to another function in stage %s", method, path, function.Stage)
	}
	files.Deployment.AddDependsOn(restMethod.LogicalID())

	files.Update.Ensure(cloudformation.NewPermission(function, api))
	return nil
}

// Queue returns the queue of a stage, creating it on first use
func (e *Environment) Queue(name, stage string) *cloudformation.Queue {
	return e.Files(stage).Update.Ensure(cloudformation.NewQueue(name+stage, defaultVisibilityTimeout)).(*cloudformation.Queue)
}

// NewQueueTrigger subscribes the function to a queue, delivering batches of batchSize.
// The queue's visibility timeout is six times the longest consumer timeout.
func (e *Environment) NewQueueTrigger(name string, batchSize int, function *cloudformation.Function) (*cloudformation.Queue, error) {
	files := e.Files(function.Stage)

	queue := e.Queue(name, function.Stage)
	queue.AddConsumerTimeout(function.Timeout * visibilityTimeoutFactor)

	if err := files.Update.AddResource(cloudformation.NewQueueEventMapping(function, queue, batchSize)); err != nil {
		return nil, fmt.Errorf("%s already consumes queue %s in stage %s", function.Name, name, function.Stage)
	}

	role := function.Role()
	role.AddAllowStatement("sqs:ReceiveMessage", queue, "")
	role.AddAllowStatement("sqs:DeleteMessage", queue, "")
	role.AddAllowStatement("sqs:GetQueueAttributes", queue, "")

	return queue, nil
}

// NewStoreTrigger streams changes of one event type from a table to the function
func (e *Environment) NewStoreTrigger(table *cloudformation.Table, eventName string, function *cloudformation.Function) error {
	files := e.Files(function.Stage)

	table.EnableStream()
	if err := files.Update.AddResource(cloudformation.NewStreamEventMapping(function, table, eventName)); err != nil {
		return fmt.Errorf("%s already receives %s events of table %s", function.Name, eventName, table.Name)
	}

	function.Role().AddAllowStatementOn("dynamodb:*", table.StreamArn())
	return nil
}

// Topic returns the notification topic of a stage, creating it on first use
func (e *Environment) Topic(name, stage string) *cloudformation.Topic {
	return e.Files(stage).Update.Ensure(cloudformation.NewTopic(name + stage)).(*cloudformation.Topic)
}

// NewNotificationTrigger subscribes the function to a topic
func (e *Environment) NewNotificationTrigger(name string, function *cloudformation.Function) {
	files := e.Files(function.Stage)

	topic := e.Topic(name, function.Stage)
	topic.Subscribe(function)

	files.Update.Ensure(cloudformation.NewPermission(function, topic))
}

// NewCronTrigger runs the function on a schedule. A function may have several
// schedules but not the same one twice.
func (e *Environment) NewCronTrigger(expression string, function *cloudformation.Function) error {
	files := e.Files(function.Stage)

	rule := cloudformation.NewCronRule(expression, function)
	if err := files.Update.AddResource(rule); err != nil {
		return fmt.Errorf("%s already runs on schedule %q in stage %s", function.Name, expression, function.Stage)
	}
	files.Update.Ensure(cloudformation.NewPermission(function, rule))
	return nil
}
