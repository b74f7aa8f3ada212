package annotations

import (
	"fmt"
	"strconv"
	"strings"
)

// AnnotationType is the keyword after "nimbus::"
type AnnotationType int

const (
	HTTPAnnotation AnnotationType = iota
	QueueAnnotation
	DocumentStoreAnnotation
	NotificationAnnotation
	BasicAnnotation

	DocumentStoreDefinitionAnnotation
	KeyValueStoreDefinitionAnnotation

	UsesDocumentStoreAnnotation
	UsesKeyValueStoreAnnotation
	UsesQueueAnnotation
	UsesNotificationTopicAnnotation
	UsesBasicFunctionAnnotation
)

var keywords = [...]string{
	HTTPAnnotation:                    "http",
	QueueAnnotation:                   "queue",
	DocumentStoreAnnotation:           "document_store",
	NotificationAnnotation:            "notification",
	BasicAnnotation:                   "basic",
	DocumentStoreDefinitionAnnotation: "document_store_definition",
	KeyValueStoreDefinitionAnnotation: "key_value_store_definition",
	UsesDocumentStoreAnnotation:       "uses_document_store",
	UsesKeyValueStoreAnnotation:       "uses_key_value_store",
	UsesQueueAnnotation:               "uses_queue",
	UsesNotificationTopicAnnotation:   "uses_notification_topic",
	UsesBasicFunctionAnnotation:       "uses_basic_function",
}

func (a AnnotationType) String() string {
	if a < 0 || int(a) >= len(keywords) {
		return "unknown"
	}
	return keywords[a]
}

func ParseAnnotationType(keyword string) (AnnotationType, error) {
	for i, kw := range keywords {
		if kw == keyword {
			return AnnotationType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown annotation type: %s", keyword)
}

// AllAnnotationTypes lists triggers first, then definitions, then uses_* markers
func AllAnnotationTypes() []AnnotationType {
	all := make([]AnnotationType, len(keywords))
	for i := range keywords {
		all[i] = AnnotationType(i)
	}
	return all
}

// Category says what a marker attaches to: triggers and permissions go on
// functions, resource definitions on types.
type Category int

const (
	TriggerCategory Category = iota
	ResourceCategory
	PermissionCategory
)

func (c Category) String() string {
	switch c {
	case TriggerCategory:
		return "trigger"
	case ResourceCategory:
		return "resource"
	case PermissionCategory:
		return "permission"
	}
	return "unknown"
}

func (a AnnotationType) Category() Category {
	if a <= BasicAnnotation {
		return TriggerCategory
	}
	if a <= KeyValueStoreDefinitionAnnotation {
		return ResourceCategory
	}
	return PermissionCategory
}

type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (s SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// ParsedAnnotation is a marker after defaults and type conversion
type ParsedAnnotation struct {
	Type       AnnotationType
	Target     string
	Parameters map[string]interface{}
	Location   SourceLocation
	Raw        string
}

func parameter[T any](p *ParsedAnnotation, name string, fallback []T) T {
	if v, ok := p.Parameters[name].(T); ok {
		return v
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	var zero T
	return zero
}

func (p *ParsedAnnotation) GetString(name string, fallback ...string) string {
	return parameter(p, name, fallback)
}

func (p *ParsedAnnotation) GetInt(name string, fallback ...int) int {
	return parameter(p, name, fallback)
}

// Stages returns the stages the marker is restricted to; empty means every default stage
func (p *ParsedAnnotation) Stages() []string {
	return parameter[[]string](p, "stages", nil)
}

// ParameterType is the Go type a marker parameter is converted to
type ParameterType int

const (
	StringType ParameterType = iota
	BoolType
	IntType
	StringSliceType
)

type converter func(interface{}) (interface{}, error)

var parameterTypes = [...]struct {
	name    string
	convert converter
}{
	StringType:      {"string", toString},
	BoolType:        {"bool", toBool},
	IntType:         {"int", toInt},
	StringSliceType: {"[]string", toStringSlice},
}

func (p ParameterType) String() string {
	if p < 0 || int(p) >= len(parameterTypes) {
		return "unknown"
	}
	return parameterTypes[p].name
}

// Convert coerces a raw token value, a string or a comma list, to the parameter type
func (p ParameterType) Convert(value interface{}) (interface{}, error) {
	if p < 0 || int(p) >= len(parameterTypes) {
		return nil, fmt.Errorf("unsupported parameter type %d", p)
	}
	return parameterTypes[p].convert(value)
}

type ParameterSpec struct {
	Type         ParameterType
	Required     bool
	DefaultValue interface{}
	Description  string
	Validator    func(interface{}) error
}

// CustomValidator checks combinations of parameters
type CustomValidator func(*ParsedAnnotation) error

type AnnotationSchema struct {
	Type        AnnotationType
	Description string
	Parameters  map[string]ParameterSpec
	// Positional names the parameters filled by bare tokens, in order.
	Positional []string
	Repeatable bool
	Validators []CustomValidator
	Examples   []string
}

func toString(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []string:
		return strings.Join(v, ","), nil
	}
	return fmt.Sprint(value), nil
}

func toBool(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	}
	return nil, fmt.Errorf("cannot use %T as bool", value)
}

func toInt(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	}
	return nil, fmt.Errorf("cannot use %T as int", value)
}

func toStringSlice(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case string:
		items := []string{}
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	}
	return nil, fmt.Errorf("cannot use %T as a list", value)
}
