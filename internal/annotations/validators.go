package annotations

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultTimeout = 10
	DefaultMemory  = 1024

	MinTimeout   = 1
	MaxTimeout   = 900
	MinMemory    = 128
	MaxMemory    = 10240
	MinBatchSize = 1
	MaxBatchSize = 10000
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	stagePattern      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*$`)
	targetPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// HTTPMethods accepted by the http marker. ANY maps to every method.
var HTTPMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "ANY"}

// StoreEventTypes accepted by the document_store marker.
var StoreEventTypes = []string{"INSERT", "MODIFY", "REMOVE"}

// ValidateHTTPMethod validates HTTP method names
func ValidateHTTPMethod(v interface{}) error {
	method := strings.ToUpper(v.(string))
	for _, valid := range HTTPMethods {
		if method == valid {
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s, got '%s'", strings.Join(HTTPMethods, ", "), v)
}

// ValidateURLPath validates URL path format
func ValidateURLPath(v interface{}) error {
	path := v.(string)
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must start with '/', got '%s'", path)
	}
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if strings.HasPrefix(segment, "{") != strings.HasSuffix(segment, "}") {
			return fmt.Errorf("unbalanced path parameter in segment '%s'", segment)
		}
	}
	return nil
}

// ValidateStoreEventType validates the document store change kind
func ValidateStoreEventType(v interface{}) error {
	method := strings.ToUpper(v.(string))
	for _, valid := range StoreEventTypes {
		if method == valid {
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s, got '%s'", strings.Join(StoreEventTypes, ", "), v)
}

// ValidateIdentifier validates a Go-style identifier such as a type name or queue id
func ValidateIdentifier(v interface{}) error {
	if !identifierPattern.MatchString(v.(string)) {
		return fmt.Errorf("must be an identifier, got '%s'", v)
	}
	return nil
}

// ValidateTarget validates a function reference, either Func or Receiver.Method
func ValidateTarget(v interface{}) error {
	if !targetPattern.MatchString(v.(string)) {
		return fmt.Errorf("must be Func or Receiver.Method, got '%s'", v)
	}
	return nil
}

// ValidateStages validates a list of stage names
func ValidateStages(v interface{}) error {
	for _, stage := range v.([]string) {
		if !stagePattern.MatchString(stage) {
			return fmt.Errorf("invalid stage name '%s'", stage)
		}
	}
	return nil
}

func intRange(name string, minimum, maximum int) func(interface{}) error {
	return func(v interface{}) error {
		n := v.(int)
		if n < minimum || n > maximum {
			return fmt.Errorf("%s must be between %d and %d, got %d", name, minimum, maximum, n)
		}
		return nil
	}
}

// TimeoutParameterSpec returns the function timeout parameter, in seconds
func TimeoutParameterSpec() ParameterSpec {
	return ParameterSpec{
		Type:         IntType,
		DefaultValue: DefaultTimeout,
		Description:  "Function timeout in seconds",
		Validator:    intRange("timeout", MinTimeout, MaxTimeout),
	}
}

// MemoryParameterSpec returns the function memory parameter, in MB
func MemoryParameterSpec() ParameterSpec {
	return ParameterSpec{
		Type:         IntType,
		DefaultValue: DefaultMemory,
		Description:  "Function memory in MB",
		Validator:    intRange("memory", MinMemory, MaxMemory),
	}
}

// StagesParameterSpec returns the deployment stages parameter
func StagesParameterSpec() ParameterSpec {
	return ParameterSpec{
		Type:         StringSliceType,
		DefaultValue: []string{},
		Description:  "Stages the marker applies to; empty means the project's default stages",
		Validator:    ValidateStages,
	}
}

// BatchSizeParameterSpec returns the queue batch size parameter. It has no default.
func BatchSizeParameterSpec() ParameterSpec {
	return ParameterSpec{
		Type:        IntType,
		Required:    true,
		Description: "Maximum number of messages delivered per invocation",
		Validator:   intRange("batchSize", MinBatchSize, MaxBatchSize),
	}
}

func identifierSpec(description string) ParameterSpec {
	return ParameterSpec{
		Type:        StringType,
		Required:    true,
		Description: description,
		Validator:   ValidateIdentifier,
	}
}
