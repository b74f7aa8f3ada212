package cloudformation

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

const (
	lambdaRuntime = "provided.al2023"
	lambdaHandler = "bootstrap"
)

// DeploymentBucket stores the function artifacts of a stage
type DeploymentBucket struct {
	base
}

// NewDeploymentBucket creates the stage's artifact bucket
func NewDeploymentBucket() *DeploymentBucket {
	return &DeploymentBucket{base{id: "NimbusDeploymentBucket"}}
}

func (b *DeploymentBucket) ResourceType() string { return "AWS::S3::Bucket" }

func (b *DeploymentBucket) Properties() map[string]interface{} {
	return map[string]interface{}{
		"PublicAccessBlockConfiguration": map[string]interface{}{
			"BlockPublicAcls":       true,
			"BlockPublicPolicy":     true,
			"IgnorePublicAcls":      true,
			"RestrictPublicBuckets": true,
		},
	}
}

// NameOutput exports the bucket name so deployment tooling can upload to it
func (b *DeploymentBucket) NameOutput(project, stage string) Output {
	return Output{
		ID:          "NimbusDeploymentBucketName",
		Description: "Bucket holding the function artifacts",
		Value:       Ref(b.id),
		ExportName:  fmt.Sprintf("%s-%s-NimbusDeploymentBucketName", project, stage),
	}
}

// LogGroup receives a function's logs
type LogGroup struct {
	base
	functionName string
}

func NewLogGroup(function *Function) *LogGroup {
	return &LogGroup{
		base:         base{id: function.LogicalID() + "LogGroup"},
		functionName: function.FunctionName,
	}
}

func (l *LogGroup) ResourceType() string { return "AWS::Logs::LogGroup" }

func (l *LogGroup) Properties() map[string]interface{} {
	return map[string]interface{}{"LogGroupName": "/aws/lambda/" + l.functionName}
}

func (l *LogGroup) Arn() interface{} {
	return Sub("arn:${AWS::Partition}:logs:${AWS::Region}:${AWS::AccountId}:log-group:/aws/lambda/" + l.functionName)
}

// Statement is one IAM policy statement
type Statement struct {
	Effect   string        `json:"Effect"`
	Action   []string      `json:"Action"`
	Resource []interface{} `json:"Resource"`
}

// IAMRole is the execution role of one function
type IAMRole struct {
	base
	statements []Statement
	seen       map[string]bool
}

func NewIAMRole(function *Function) *IAMRole {
	return &IAMRole{
		base: base{id: function.LogicalID() + "Role"},
		seen: make(map[string]bool),
	}
}

// AddAllowStatement allows action on a resource ARN, with an optional literal suffix
// such as ":*". Duplicate statements are ignored.
func (r *IAMRole) AddAllowStatement(action string, resource ArnResource, suffix string) {
	r.AddAllowStatementOn(action, withSuffix(resource.Arn(), suffix))
}

// AddAllowStatementOn allows action on a raw ARN value
func (r *IAMRole) AddAllowStatementOn(action string, arn interface{}) {
	key, _ := json.Marshal([]interface{}{action, arn})
	if r.seen[string(key)] {
		return
	}
	r.seen[string(key)] = true
	r.statements = append(r.statements, Statement{
		Effect:   "Allow",
		Action:   []string{action},
		Resource: []interface{}{arn},
	})
}

// Statements returns the allow statements in insertion order
func (r *IAMRole) Statements() []Statement {
	return r.statements
}

func (r *IAMRole) ResourceType() string { return "AWS::IAM::Role" }

func (r *IAMRole) Properties() map[string]interface{} {
	return map[string]interface{}{
		"AssumeRolePolicyDocument": map[string]interface{}{
			"Version": "2012-10-17",
			"Statement": []interface{}{
				map[string]interface{}{
					"Effect":    "Allow",
					"Principal": map[string]interface{}{"Service": []string{"lambda.amazonaws.com"}},
					"Action":    []string{"sts:AssumeRole"},
				},
			},
		},
		"Policies": []interface{}{
			map[string]interface{}{
				"PolicyName": r.id + "Policy",
				"PolicyDocument": map[string]interface{}{
					"Version":   "2012-10-17",
					"Statement": r.statements,
				},
			},
		},
	}
}

func (r *IAMRole) Arn() interface{} { return GetAtt(r.id, "Arn") }

// Function is one deployed Lambda function
type Function struct {
	base
	Name         string // registration name, Receiver.Method
	FunctionName string
	Stage        string
	Timeout      int
	Memory       int

	artifactKey string
	bucket      *DeploymentBucket
	role        *IAMRole
	logGroup    *LogGroup
	env         map[string]interface{}
}

// NewFunction creates a function whose code is the artifact stored under artifactKey
func NewFunction(name, functionName, stage string, timeout, memory int, artifactKey string, bucket *DeploymentBucket) *Function {
	fn := &Function{
		base:         base{id: LogicalID(name, "Function")},
		Name:         name,
		FunctionName: functionName,
		Stage:        stage,
		Timeout:      timeout,
		Memory:       memory,
		artifactKey:  artifactKey,
		bucket:       bucket,
		env:          make(map[string]interface{}),
	}
	return fn
}

// SetRole attaches the execution role and the log group the function depends on
func (f *Function) SetRole(role *IAMRole, logGroup *LogGroup) {
	f.role = role
	f.logGroup = logGroup
	f.AddDependsOn(role.LogicalID(), logGroup.LogicalID())
}

func (f *Function) Role() *IAMRole { return f.role }

// AddEnvVariable sets an environment variable; the value may be an intrinsic
func (f *Function) AddEnvVariable(key string, value interface{}) {
	f.env[key] = value
}

// EnvVariables returns the environment of the function
func (f *Function) EnvVariables() map[string]interface{} {
	return f.env
}

func (f *Function) ResourceType() string { return "AWS::Lambda::Function" }

func (f *Function) Properties() map[string]interface{} {
	props := map[string]interface{}{
		"FunctionName": f.FunctionName,
		"Runtime":      lambdaRuntime,
		"Handler":      lambdaHandler,
		"Code": map[string]interface{}{
			"S3Bucket": Ref(f.bucket.LogicalID()),
			"S3Key":    f.artifactKey,
		},
		"Timeout":    f.Timeout,
		"MemorySize": f.Memory,
	}
	if f.role != nil {
		props["Role"] = f.role.Arn()
	}
	if len(f.env) > 0 {
		props["Environment"] = map[string]interface{}{"Variables": f.env}
	}
	return props
}

func (f *Function) Arn() interface{} { return GetAtt(f.id, "Arn") }

// permissionSource is a service that invokes functions and needs a Lambda permission for it
type permissionSource interface {
	LogicalID() string
	principal() string
	sourceArn() interface{}
}

// Permission allows a service to invoke a function
type Permission struct {
	base
	function *Function
	source   permissionSource
}

func NewPermission(function *Function, source permissionSource) *Permission {
	return &Permission{
		base:     base{id: function.LogicalID() + "PermissionFor" + source.LogicalID()},
		function: function,
		source:   source,
	}
}

func (p *Permission) ResourceType() string { return "AWS::Lambda::Permission" }

func (p *Permission) Properties() map[string]interface{} {
	return map[string]interface{}{
		"Action":       "lambda:InvokeFunction",
		"FunctionName": p.function.Arn(),
		"Principal":    p.source.principal(),
		"SourceArn":    p.source.sourceArn(),
	}
}

// RestAPI is the stage's API Gateway REST API
type RestAPI struct {
	base
	name string
}

func NewRestAPI(project, stage string) *RestAPI {
	return &RestAPI{
		base: base{id: "ApiGatewayRestApi"},
		name: fmt.Sprintf("%s-%s-HTTP", project, stage),
	}
}

func (a *RestAPI) ResourceType() string { return "AWS::ApiGateway::RestApi" }

func (a *RestAPI) Properties() map[string]interface{} {
	return map[string]interface{}{
		"Name":                  a.name,
		"BinaryMediaTypes":      []string{"*/*"},
		"EndpointConfiguration": map[string]interface{}{"Types": []string{"REGIONAL"}},
	}
}

func (a *RestAPI) resourceID() interface{} { return GetAtt(a.id, "RootResourceId") }

func (a *RestAPI) pathID() string { return "" }

func (a *RestAPI) principal() string { return "apigateway.amazonaws.com" }

func (a *RestAPI) sourceArn() interface{} {
	return Sub("arn:${AWS::Partition}:execute-api:${AWS::Region}:${AWS::AccountId}:${" + a.id + "}/*/*")
}

// URLOutput exports the base URL of the stage
func (a *RestAPI) URLOutput(project, stage string) Output {
	return Output{
		ID:          "HttpApiUrl",
		Description: "Base URL of the REST API",
		Value:       Sub("https://${" + a.id + "}.execute-api.${AWS::Region}.amazonaws.com/" + stage),
		ExportName:  fmt.Sprintf("%s-%s-HttpApiUrl", project, stage),
	}
}

// RestParent is the REST API root or a path resource
type RestParent interface {
	resourceID() interface{}
	pathID() string
}

// RestResource is one path segment of the REST API
type RestResource struct {
	base
	api    *RestAPI
	parent RestParent
	part   string
	path   string
}

func NewRestResource(api *RestAPI, parent RestParent, part string) *RestResource {
	path := parent.pathID() + LogicalID(part)
	return &RestResource{
		base:   base{id: "ApiGatewayResource" + path},
		api:    api,
		parent: parent,
		part:   part,
		path:   path,
	}
}

func (r *RestResource) ResourceType() string { return "AWS::ApiGateway::Resource" }

func (r *RestResource) Properties() map[string]interface{} {
	return map[string]interface{}{
		"ParentId":  r.parent.resourceID(),
		"PathPart":  r.part,
		"RestApiId": Ref(r.api.LogicalID()),
	}
}

func (r *RestResource) resourceID() interface{} { return Ref(r.id) }

func (r *RestResource) pathID() string { return r.path }

// RestMethod routes one HTTP method of a resource to a function through a Lambda proxy integration
type RestMethod struct {
	base
	api      *RestAPI
	resource RestParent
	method   string
	function *Function
}

func NewRestMethod(api *RestAPI, resource RestParent, method string, function *Function) *RestMethod {
	return &RestMethod{
		base:     base{id: "ApiGatewayMethod" + resource.pathID() + LogicalID(method)},
		api:      api,
		resource: resource,
		method:   method,
		function: function,
	}
}

func (m *RestMethod) ResourceType() string { return "AWS::ApiGateway::Method" }

func (m *RestMethod) Properties() map[string]interface{} {
	return map[string]interface{}{
		"HttpMethod":        m.method,
		"AuthorizationType": "NONE",
		"ResourceId":        m.resource.resourceID(),
		"RestApiId":         Ref(m.api.LogicalID()),
		"Integration": map[string]interface{}{
			"Type":                  "AWS_PROXY",
			"IntegrationHttpMethod": "POST",
			"Uri": Sub("arn:${AWS::Partition}:apigateway:${AWS::Region}:lambda:path/2015-03-31/functions/${" +
				m.function.LogicalID() + ".Arn}/invocations"),
		},
	}
}

// APIGatewayDeployment deploys the REST API to the stage. It depends on every method.
type APIGatewayDeployment struct {
	base
	api   *RestAPI
	stage string
}

// NewAPIGatewayDeployment names the deployment after the compilation time so every
// compilation produces a new deployment.
func NewAPIGatewayDeployment(api *RestAPI, stage, timestamp string) *APIGatewayDeployment {
	return &APIGatewayDeployment{
		base:  base{id: LogicalID("ApiGatewayDeployment", timestamp)},
		api:   api,
		stage: stage,
	}
}

func (d *APIGatewayDeployment) ResourceType() string { return "AWS::ApiGateway::Deployment" }

func (d *APIGatewayDeployment) Properties() map[string]interface{} {
	return map[string]interface{}{
		"RestApiId": Ref(d.api.LogicalID()),
		"StageName": d.stage,
	}
}

// Queue is an SQS queue
type Queue struct {
	base
	Name              string
	visibilityTimeout int
	consumed          bool
}

func NewQueue(name string, visibilityTimeout int) *Queue {
	return &Queue{
		base:              base{id: LogicalID("SQSQueue", name)},
		Name:              name,
		visibilityTimeout: visibilityTimeout,
	}
}

// AddConsumerTimeout sets the visibility timeout a consumer needs. The first
// consumer replaces the initial value; later ones can only raise it.
func (q *Queue) AddConsumerTimeout(seconds int) {
	if !q.consumed {
		q.consumed = true
		q.visibilityTimeout = seconds
		return
	}
	q.visibilityTimeout = max(q.visibilityTimeout, seconds)
}

func (q *Queue) VisibilityTimeout() int { return q.visibilityTimeout }

func (q *Queue) ResourceType() string { return "AWS::SQS::Queue" }

func (q *Queue) Properties() map[string]interface{} {
	return map[string]interface{}{
		"QueueName":         q.Name,
		"VisibilityTimeout": q.visibilityTimeout,
	}
}

func (q *Queue) Arn() interface{} { return GetAtt(q.id, "Arn") }

// URL is the queue URL clients send to
func (q *Queue) URL() interface{} { return Ref(q.id) }

// EventSourceMapping polls a queue or stream and invokes a function
type EventSourceMapping struct {
	base
	function  *Function
	sourceArn interface{}
	batchSize int
	stream    bool
	filter    string
}

// NewQueueEventMapping maps a queue to a function
func NewQueueEventMapping(function *Function, queue *Queue, batchSize int) *EventSourceMapping {
	m := &EventSourceMapping{
		base:      base{id: function.LogicalID() + "EventMapping" + queue.LogicalID()},
		function:  function,
		sourceArn: queue.Arn(),
		batchSize: batchSize,
	}
	m.AddDependsOn(function.Role().LogicalID())
	return m
}

// NewStreamEventMapping maps a table stream to a function, delivering one record at a time
// and only records whose eventName matches.
func NewStreamEventMapping(function *Function, table *Table, eventName string) *EventSourceMapping {
	filter, _ := json.Marshal(map[string][]string{"eventName": {eventName}})
	m := &EventSourceMapping{
		base:      base{id: function.LogicalID() + "EventMapping" + table.LogicalID() + LogicalID(eventName)},
		function:  function,
		sourceArn: table.StreamArn(),
		batchSize: 1,
		stream:    true,
		filter:    string(filter),
	}
	m.AddDependsOn(function.Role().LogicalID())
	return m
}

func (m *EventSourceMapping) ResourceType() string { return "AWS::Lambda::EventSourceMapping" }

func (m *EventSourceMapping) Properties() map[string]interface{} {
	props := map[string]interface{}{
		"BatchSize":      m.batchSize,
		"Enabled":        true,
		"EventSourceArn": m.sourceArn,
		"FunctionName":   Ref(m.function.LogicalID()),
	}
	if m.stream {
		props["StartingPosition"] = "LATEST"
	} else {
		props["FunctionResponseTypes"] = []string{"ReportBatchItemFailures"}
	}
	if m.filter != "" {
		props["FilterCriteria"] = map[string]interface{}{
			"Filters": []interface{}{map[string]interface{}{"Pattern": m.filter}},
		}
	}
	return props
}

// Table is a DynamoDB table backing a document or key-value store
type Table struct {
	base
	Name    string
	KeyName string
	KeyType string // S or N
	stream  bool
}

func NewTable(name, keyName, keyType string) *Table {
	return &Table{
		base:    base{id: LogicalID("DynamoDbTable", name)},
		Name:    name,
		KeyName: keyName,
		KeyType: keyType,
	}
}

// EnableStream turns on the NEW_AND_OLD_IMAGES stream store triggers consume
func (t *Table) EnableStream() { t.stream = true }

func (t *Table) StreamEnabled() bool { return t.stream }

func (t *Table) ResourceType() string { return "AWS::DynamoDB::Table" }

func (t *Table) Properties() map[string]interface{} {
	props := map[string]interface{}{
		"TableName": t.Name,
		"AttributeDefinitions": []interface{}{
			map[string]interface{}{"AttributeName": t.KeyName, "AttributeType": t.KeyType},
		},
		"KeySchema": []interface{}{
			map[string]interface{}{"AttributeName": t.KeyName, "KeyType": "HASH"},
		},
		"BillingMode": "PAY_PER_REQUEST",
	}
	if t.stream {
		props["StreamSpecification"] = map[string]interface{}{"StreamViewType": "NEW_AND_OLD_IMAGES"}
	}
	return props
}

func (t *Table) Arn() interface{} { return GetAtt(t.id, "Arn") }

func (t *Table) StreamArn() interface{} { return GetAtt(t.id, "StreamArn") }

// Topic is an SNS topic; function subscriptions are declared inline
type Topic struct {
	base
	Name          string
	subscriptions []*Function
}

func NewTopic(name string) *Topic {
	return &Topic{
		base: base{id: LogicalID("SNSTopic", name)},
		Name: name,
	}
}

// Subscribe adds a Lambda subscription for function
func (t *Topic) Subscribe(function *Function) {
	for _, existing := range t.subscriptions {
		if existing == function {
			return
		}
	}
	t.subscriptions = append(t.subscriptions, function)
}

func (t *Topic) ResourceType() string { return "AWS::SNS::Topic" }

func (t *Topic) Properties() map[string]interface{} {
	props := map[string]interface{}{"TopicName": t.Name}
	if len(t.subscriptions) > 0 {
		subs := make([]interface{}, 0, len(t.subscriptions))
		for _, fn := range t.subscriptions {
			subs = append(subs, map[string]interface{}{"Protocol": "lambda", "Endpoint": fn.Arn()})
		}
		props["Subscription"] = subs
	}
	return props
}

// Arn of a topic is its Ref value
func (t *Topic) Arn() interface{} { return Ref(t.id) }

func (t *Topic) principal() string { return "sns.amazonaws.com" }

func (t *Topic) sourceArn() interface{} { return t.Arn() }

// CronRule runs a function on a schedule
type CronRule struct {
	base
	expression string
	function   *Function
}

// NewCronRule schedules function. The logical id carries a hash of the
// expression so one function can run on several schedules.
func NewCronRule(expression string, function *Function) *CronRule {
	h := fnv.New32a()
	h.Write([]byte(expression))
	return &CronRule{
		base:       base{id: fmt.Sprintf("%sCronRule%08x", function.LogicalID(), h.Sum32())},
		expression: expression,
		function:   function,
	}
}

func (c *CronRule) ResourceType() string { return "AWS::Events::Rule" }

func (c *CronRule) Properties() map[string]interface{} {
	return map[string]interface{}{
		"ScheduleExpression": "cron(" + c.expression + ")",
		"State":              "ENABLED",
		"Targets": []interface{}{
			map[string]interface{}{"Arn": c.function.Arn(), "Id": c.function.LogicalID() + "Target"},
		},
	}
}

func (c *CronRule) principal() string { return "events.amazonaws.com" }

func (c *CronRule) sourceArn() interface{} { return GetAtt(c.id, "Arn") }
