package clients

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"

	"github.com/nimbusframework/nimbus-go/pkg/nimbus/local"
)

const (
	// DefaultDocumentKey is the key attribute of document stores declared without -key
	DefaultDocumentKey = "id"
	// DefaultKeyValueKey is the key attribute of key-value stores declared without -keyName
	DefaultKeyValueKey = "PrimaryKey"

	lambdaFunctionNameEnv = "AWS_LAMBDA_FUNCTION_NAME"
	tracingEnv            = "NIMBUS_ENABLE_TRACING"
)

// OnLambda reports whether the process runs inside AWS Lambda
func OnLambda() bool {
	return os.Getenv(lambdaFunctionNameEnv) != ""
}

// Builder creates clients, choosing the AWS implementation under Lambda and
// the local deployment otherwise. AWS service clients are created once and shared.
type Builder struct {
	useAWS  bool
	tracing bool
	local   *local.Deployment

	mu      sync.Mutex
	once    sync.Once
	cfg     aws.Config
	loadErr error

	dynamo DynamoDBAPI
	sqs    SQSAPI
	sns    SNSAPI
	lambda LambdaAPI
}

// NewBuilder inspects the environment to pick implementations.
// NIMBUS_ENABLE_TRACING=true instruments AWS clients with X-Ray.
func NewBuilder() *Builder {
	tracing, _ := strconv.ParseBool(os.Getenv(tracingEnv))
	return &Builder{useAWS: OnLambda(), tracing: tracing}
}

// NewLocalBuilder always uses the given local deployment, or the default one when nil
func NewLocalBuilder(d *local.Deployment) *Builder {
	return &Builder{local: d}
}

// NewAWSBuilder always uses AWS with the given configuration
func NewAWSBuilder(cfg aws.Config) *Builder {
	b := &Builder{useAWS: true, cfg: cfg}
	b.once.Do(func() {})
	return b
}

// WithDynamoDB overrides the DynamoDB client, mainly for tests
func (b *Builder) WithDynamoDB(api DynamoDBAPI) *Builder { b.dynamo = api; return b }

// WithSQS overrides the SQS client
func (b *Builder) WithSQS(api SQSAPI) *Builder { b.sqs = api; return b }

// WithSNS overrides the SNS client
func (b *Builder) WithSNS(api SNSAPI) *Builder { b.sns = api; return b }

// WithLambda overrides the Lambda client
func (b *Builder) WithLambda(api LambdaAPI) *Builder { b.lambda = api; return b }

// UsesAWS reports whether clients talk to AWS
func (b *Builder) UsesAWS() bool {
	return b.useAWS
}

func (b *Builder) deployment() *local.Deployment {
	if b.local != nil {
		return b.local
	}
	return local.Default()
}

func (b *Builder) awsConfig() (aws.Config, error) {
	b.once.Do(func() {
		b.cfg, b.loadErr = config.LoadDefaultConfig(context.Background())
		if b.loadErr != nil {
			b.loadErr = fmt.Errorf("failed to load AWS configuration: %w", b.loadErr)
			return
		}
		if b.tracing {
			awsv2.AWSV2Instrumentor(&b.cfg.APIOptions)
		}
	})
	return b.cfg, b.loadErr
}

func (b *Builder) dynamoAPI() (DynamoDBAPI, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dynamo != nil {
		return b.dynamo, nil
	}
	cfg, err := b.awsConfig()
	if err != nil {
		return nil, err
	}
	b.dynamo = dynamodb.NewFromConfig(cfg)
	return b.dynamo, nil
}

// Queue returns a client for a queue declared with uses_queue
func (b *Builder) Queue(name string) (QueueClient, error) {
	if !b.useAWS {
		return &localQueue{queue: b.deployment().Queue(name)}, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sqs == nil {
		cfg, err := b.awsConfig()
		if err != nil {
			return nil, err
		}
		b.sqs = sqs.NewFromConfig(cfg)
	}
	return &sqsQueue{api: b.sqs, queue: name}, nil
}

// Topic returns a client for a topic declared with uses_notification_topic
func (b *Builder) Topic(name string) (NotificationClient, error) {
	if !b.useAWS {
		return &localTopic{topic: b.deployment().Topic(name)}, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sns == nil {
		cfg, err := b.awsConfig()
		if err != nil {
			return nil, err
		}
		b.sns = sns.NewFromConfig(cfg)
	}
	return &snsTopic{api: b.sns, topic: name}, nil
}

// BasicFunction returns a client for a function declared with uses_basic_function.
// name is the registered function name, such as "Reports.Generate".
func (b *Builder) BasicFunction(name string) (BasicFunctionClient, error) {
	if !b.useAWS {
		return &localFunction{deployment: b.deployment(), function: name}, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lambda == nil {
		cfg, err := b.awsConfig()
		if err != nil {
			return nil, err
		}
		b.lambda = lambda.NewFromConfig(cfg)
	}
	return &lambdaFunction{api: b.lambda, function: name}, nil
}

// DocumentStore returns a client for the document store of a data model.
// key is the attribute named by -key, empty for the default.
func DocumentStore[T any](b *Builder, model, key string) (DocumentStoreClient[T], error) {
	if key == "" {
		key = DefaultDocumentKey
	}
	store, err := b.itemStore(model, key, (*local.Deployment).Table)
	if err != nil {
		return nil, err
	}
	return &documentStore[T]{store: store, key: key}, nil
}

// KeyValueStore returns a client for the key-value store of a value type.
// key is the attribute named by -keyName, empty for the default.
func KeyValueStore[K comparable, V any](b *Builder, model, key string) (KeyValueStoreClient[K, V], error) {
	if key == "" {
		key = DefaultKeyValueKey
	}
	store, err := b.itemStore(model, key, (*local.Deployment).KeyValueTable)
	if err != nil {
		return nil, err
	}
	return &keyValueStore[K, V]{store: store, key: key}, nil
}

func (b *Builder) itemStore(model, key string, localTable func(*local.Deployment, string, string) *local.Table) (itemStore, error) {
	if !b.useAWS {
		return localStore{table: localTable(b.deployment(), model, key)}, nil
	}
	api, err := b.dynamoAPI()
	if err != nil {
		return nil, err
	}
	return dynamoStore{api: api, model: model, key: key}, nil
}
