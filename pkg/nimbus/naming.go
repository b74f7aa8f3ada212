package nimbus

import (
	"strings"
	"unicode"
)

// Environment variables set on every deployed function and read by the runtime and clients.
const (
	EnvStage             = "NIMBUS_STAGE"
	EnvProjectName       = "NIMBUS_PROJECT_NAME"
	EnvFunction          = "NIMBUS_FUNCTION"
	EnvAllowedCorsOrigin = "NIMBUS_ALLOWED_CORS_ORIGIN"
	EnvFunctionStage     = "FUNCTION_STAGE"

	tableNameEnvPrefix = "NIMBUS_TABLE_NAME_"
	queueURLEnvPrefix  = "NIMBUS_QUEUE_URL_ID_"
	topicARNEnvPrefix  = "SNS_TOPIC_ARN_"
)

// MaxFunctionNameLength is the longest name AWS Lambda accepts.
const MaxFunctionNameLength = 64

// TableNameEnv returns the variable holding the deployed table name of a data model
func TableNameEnv(model string) string {
	return tableNameEnvPrefix + envSuffix(model)
}

// QueueURLEnv returns the variable holding the URL of a queue
func QueueURLEnv(queue string) string {
	return queueURLEnvPrefix + envSuffix(queue)
}

// TopicARNEnv returns the variable holding the ARN of a notification topic
func TopicARNEnv(topic string) string {
	return topicARNEnvPrefix + envSuffix(topic)
}

func envSuffix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// FunctionName returns the deployed name of a registered function:
// <project>-<stage>-<receiver>-<method>, lowercased, limited to [a-z0-9-_] and 64 characters.
func FunctionName(project, stage, function string) string {
	raw := strings.ToLower(project + "-" + stage + "-" + strings.ReplaceAll(function, ".", "-"))

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}

	name := b.String()
	if len(name) > MaxFunctionNameLength {
		name = name[:MaxFunctionNameLength]
	}
	return strings.TrimRight(name, "-")
}

// TableName returns the deployed table name for a prefix and stage
func TableName(prefix, stage string) string {
	return prefix + stage
}
