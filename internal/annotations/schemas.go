package annotations

import (
	"fmt"
	"strings"
)

// HTTPAnnotationSchema defines //nimbus::http
var HTTPAnnotationSchema = AnnotationSchema{
	Type:        HTTPAnnotation,
	Description: "Deploys the function behind a REST API method",
	Positional:  []string{"method", "path"},
	Repeatable:  true,
	Parameters: map[string]ParameterSpec{
		"method": {
			Type:        StringType,
			Required:    true,
			Description: "HTTP method (GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS, ANY)",
			Validator:   ValidateHTTPMethod,
		},
		"path": {
			Type:        StringType,
			Required:    true,
			Description: "URL path, with {name} segments for path parameters",
			Validator:   ValidateURLPath,
		},
		"timeout": TimeoutParameterSpec(),
		"memory":  MemoryParameterSpec(),
		"stages":  StagesParameterSpec(),
		"allowedCorsOrigin": {
			Type:         StringType,
			DefaultValue: "",
			Description:  "Origin allowed by CORS responses, '*' for any",
		},
	},
	Examples: []string{
		"//nimbus::http GET /users/{id}",
		"//nimbus::http POST /users -timeout=30 -memory=512",
		"//nimbus::http DELETE /users/{id} -stages=prod -allowedCorsOrigin=https://example.com",
	},
}

// QueueAnnotationSchema defines //nimbus::queue
var QueueAnnotationSchema = AnnotationSchema{
	Type:        QueueAnnotation,
	Description: "Invokes the function with batches of messages sent to a queue",
	Positional:  []string{"queue"},
	Repeatable:  true,
	Parameters: map[string]ParameterSpec{
		"queue":     identifierSpec("Queue identifier, usually the message type name"),
		"batchSize": BatchSizeParameterSpec(),
		"timeout":   TimeoutParameterSpec(),
		"memory":    MemoryParameterSpec(),
		"stages":    StagesParameterSpec(),
	},
	Examples: []string{
		"//nimbus::queue OrderPlaced -batchSize=10",
		"//nimbus::queue -queue=OrderPlaced -batchSize=1 -timeout=60 -stages=dev,prod",
	},
}

// DocumentStoreAnnotationSchema defines //nimbus::document_store
var DocumentStoreAnnotationSchema = AnnotationSchema{
	Type:        DocumentStoreAnnotation,
	Description: "Invokes the function when documents of a data model are inserted, modified or removed",
	Positional:  []string{"dataModel", "method"},
	Repeatable:  true,
	Parameters: map[string]ParameterSpec{
		"dataModel": identifierSpec("Type declared with nimbus::document_store_definition"),
		"method": {
			Type:        StringType,
			Required:    true,
			Description: "Change kind: INSERT, MODIFY or REMOVE",
			Validator:   ValidateStoreEventType,
		},
		"timeout": TimeoutParameterSpec(),
		"memory":  MemoryParameterSpec(),
		"stages":  StagesParameterSpec(),
	},
	Examples: []string{
		"//nimbus::document_store User INSERT",
		"//nimbus::document_store User REMOVE -stages=prod",
	},
}

// NotificationAnnotationSchema defines //nimbus::notification
var NotificationAnnotationSchema = AnnotationSchema{
	Type:        NotificationAnnotation,
	Description: "Subscribes the function to a notification topic",
	Positional:  []string{"topic"},
	Repeatable:  true,
	Parameters: map[string]ParameterSpec{
		"topic":   identifierSpec("Notification topic name"),
		"timeout": TimeoutParameterSpec(),
		"memory":  MemoryParameterSpec(),
		"stages":  StagesParameterSpec(),
	},
	Examples: []string{
		"//nimbus::notification UserSignedUp",
	},
}

// BasicAnnotationSchema defines //nimbus::basic
var BasicAnnotationSchema = AnnotationSchema{
	Type:        BasicAnnotation,
	Description: "Deploys a function invoked directly or on a cron schedule",
	Repeatable:  true,
	Parameters: map[string]ParameterSpec{
		"cron": {
			Type:         StringType,
			DefaultValue: "",
			Description:  "Schedule in AWS cron syntax (six fields); empty for direct invocation only",
		},
		"timeout": TimeoutParameterSpec(),
		"memory":  MemoryParameterSpec(),
		"stages":  StagesParameterSpec(),
	},
	Examples: []string{
		"//nimbus::basic",
		`//nimbus::basic -cron="0 12 * * ? *"`,
	},
}

// DocumentStoreDefinitionAnnotationSchema defines //nimbus::document_store_definition
var DocumentStoreDefinitionAnnotationSchema = AnnotationSchema{
	Type:        DocumentStoreDefinitionAnnotation,
	Description: "Creates a document store table for the annotated type",
	Repeatable:  true,
	Parameters: map[string]ParameterSpec{
		"tableName": {
			Type:         StringType,
			DefaultValue: "",
			Description:  "Table name prefix; the type name when empty. The stage is appended.",
		},
		"key": {
			Type:         StringType,
			DefaultValue: "id",
			Description:  "Attribute holding the document key",
		},
		"stages": StagesParameterSpec(),
	},
	Examples: []string{
		"//nimbus::document_store_definition",
		"//nimbus::document_store_definition -tableName=Accounts -key=accountId -stages=prod",
	},
}

// KeyValueStoreDefinitionAnnotationSchema defines //nimbus::key_value_store_definition
var KeyValueStoreDefinitionAnnotationSchema = AnnotationSchema{
	Type:        KeyValueStoreDefinitionAnnotation,
	Description: "Creates a key-value store table for the annotated value type",
	Repeatable:  true,
	Parameters: map[string]ParameterSpec{
		"tableName": {
			Type:         StringType,
			DefaultValue: "",
			Description:  "Table name prefix; the type name when empty. The stage is appended.",
		},
		"keyName": {
			Type:         StringType,
			DefaultValue: "PrimaryKey",
			Description:  "Attribute holding the key",
		},
		"keyType": {
			Type:         StringType,
			DefaultValue: "string",
			Description:  "Key attribute type: string or number",
			Validator: func(v interface{}) error {
				if s := v.(string); s != "string" && s != "number" {
					return fmt.Errorf("must be 'string' or 'number', got '%s'", s)
				}
				return nil
			},
		},
		"existingArn": {
			Type:         StringType,
			DefaultValue: "",
			Description:  "ARN of an existing table; no table is created when set",
		},
		"stages": StagesParameterSpec(),
	},
	Examples: []string{
		"//nimbus::key_value_store_definition -keyType=number",
	},
}

func usesSchema(t AnnotationType, description, target string, targetSpec ParameterSpec) AnnotationSchema {
	return AnnotationSchema{
		Type:        t,
		Description: description,
		Positional:  []string{target},
		Repeatable:  true,
		Parameters: map[string]ParameterSpec{
			target:   targetSpec,
			"stages": StagesParameterSpec(),
		},
	}
}

var (
	// UsesDocumentStoreAnnotationSchema defines //nimbus::uses_document_store
	UsesDocumentStoreAnnotationSchema = usesSchema(UsesDocumentStoreAnnotation,
		"Grants the function access to a document store", "dataModel",
		identifierSpec("Type declared with nimbus::document_store_definition"))

	// UsesKeyValueStoreAnnotationSchema defines //nimbus::uses_key_value_store
	UsesKeyValueStoreAnnotationSchema = usesSchema(UsesKeyValueStoreAnnotation,
		"Grants the function access to a key-value store", "dataModel",
		identifierSpec("Type declared with nimbus::key_value_store_definition"))

	// UsesQueueAnnotationSchema defines //nimbus::uses_queue
	UsesQueueAnnotationSchema = usesSchema(UsesQueueAnnotation,
		"Allows the function to send messages to a queue", "queue",
		identifierSpec("Queue identifier"))

	// UsesNotificationTopicAnnotationSchema defines //nimbus::uses_notification_topic
	UsesNotificationTopicAnnotationSchema = usesSchema(UsesNotificationTopicAnnotation,
		"Allows the function to publish to and manage subscriptions of a topic", "topic",
		identifierSpec("Notification topic name"))

	// UsesBasicFunctionAnnotationSchema defines //nimbus::uses_basic_function
	UsesBasicFunctionAnnotationSchema = usesSchema(UsesBasicFunctionAnnotation,
		"Allows the function to invoke a basic function", "target",
		ParameterSpec{
			Type:        StringType,
			Required:    true,
			Description: "Function declared with nimbus::basic, as Func or Receiver.Method",
			Validator:   ValidateTarget,
		})
)

// RegisterBuiltinSchemas registers every nimbus marker schema with the given registry
func RegisterBuiltinSchemas(registry AnnotationRegistry) error {
	for _, schema := range GetBuiltinSchemas() {
		if err := registry.Register(schema); err != nil {
			return fmt.Errorf("failed to register %s schema: %w", schema.Type, err)
		}
	}
	return nil
}

// GetBuiltinSchemas returns all builtin marker schemas
func GetBuiltinSchemas() []AnnotationSchema {
	return []AnnotationSchema{
		HTTPAnnotationSchema,
		QueueAnnotationSchema,
		DocumentStoreAnnotationSchema,
		NotificationAnnotationSchema,
		BasicAnnotationSchema,
		DocumentStoreDefinitionAnnotationSchema,
		KeyValueStoreDefinitionAnnotationSchema,
		UsesDocumentStoreAnnotationSchema,
		UsesKeyValueStoreAnnotationSchema,
		UsesQueueAnnotationSchema,
		UsesNotificationTopicAnnotationSchema,
		UsesBasicFunctionAnnotationSchema,
	}
}

// ValidateCorsOrigin checks that an allowed origin is '*' or an http(s) origin
func ValidateCorsOrigin(annotation *ParsedAnnotation) error {
	origin := annotation.GetString("allowedCorsOrigin")
	if origin == "" || origin == "*" {
		return nil
	}
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		return fmt.Errorf("allowedCorsOrigin must be '*' or start with http:// or https://, got '%s'", origin)
	}
	return nil
}

// ValidateCronExpression checks the six-field AWS cron syntax
func ValidateCronExpression(annotation *ParsedAnnotation) error {
	cron := strings.TrimSpace(annotation.GetString("cron"))
	if cron == "" {
		return nil
	}
	if fields := strings.Fields(cron); len(fields) != 6 {
		return fmt.Errorf("cron expression must have 6 fields (minutes hours day-of-month month day-of-week year), got %d", len(fields))
	}
	return nil
}

// ValidateExistingArn checks that a referenced table is given as an ARN
func ValidateExistingArn(annotation *ParsedAnnotation) error {
	arn := annotation.GetString("existingArn")
	if arn != "" && !strings.HasPrefix(arn, "arn:") {
		return fmt.Errorf("existingArn must be an ARN, got '%s'", arn)
	}
	return nil
}

// ValidateKeyAttribute checks that a store declares a usable key attribute
func ValidateKeyAttribute(param string) CustomValidator {
	return func(annotation *ParsedAnnotation) error {
		if strings.TrimSpace(annotation.GetString(param)) == "" {
			return fmt.Errorf("%s cannot be empty", param)
		}
		return nil
	}
}

func init() {
	HTTPAnnotationSchema.Validators = []CustomValidator{ValidateCorsOrigin}
	BasicAnnotationSchema.Validators = []CustomValidator{ValidateCronExpression}
	DocumentStoreDefinitionAnnotationSchema.Validators = []CustomValidator{ValidateKeyAttribute("key")}
	KeyValueStoreDefinitionAnnotationSchema.Validators = []CustomValidator{
		ValidateKeyAttribute("keyName"),
		ValidateExistingArn,
	}
}
