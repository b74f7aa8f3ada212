package annotations

import (
	"fmt"
	"sync"
)

// AnnotationRegistry holds the schema of every marker type the parser accepts
type AnnotationRegistry interface {
	Register(schema AnnotationSchema) error
	Schema(annotationType AnnotationType) (AnnotationSchema, error)
	// Types returns the registered types in registration order
	Types() []AnnotationType
	Has(annotationType AnnotationType) bool
}

type registry struct {
	mu      sync.RWMutex
	schemas map[AnnotationType]AnnotationSchema
	order   []AnnotationType
}

// NewRegistry creates an empty annotation registry
func NewRegistry() AnnotationRegistry {
	return &registry{schemas: make(map[AnnotationType]AnnotationSchema)}
}

var defaultRegistry = sync.OnceValues(func() (AnnotationRegistry, error) {
	r := NewRegistry()
	return r, RegisterBuiltinSchemas(r)
})

// DefaultRegistry returns the process-wide registry with every builtin schema registered
func DefaultRegistry() (AnnotationRegistry, error) {
	return defaultRegistry()
}

func (r *registry) Register(schema AnnotationSchema) error {
	if schema.Type.String() == "unknown" {
		return fmt.Errorf("schema has unknown marker type %d", schema.Type)
	}
	if err := checkSchema(schema); err != nil {
		return fmt.Errorf("invalid schema for %s: %w", schema.Type, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[schema.Type]; exists {
		return fmt.Errorf("annotation type %s is already registered", schema.Type)
	}
	r.schemas[schema.Type] = schema
	r.order = append(r.order, schema.Type)
	return nil
}

func (r *registry) Schema(annotationType AnnotationType) (AnnotationSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schema, ok := r.schemas[annotationType]
	if !ok {
		return AnnotationSchema{}, fmt.Errorf("annotation type %s is not registered", annotationType)
	}
	return schema, nil
}

func (r *registry) Types() []AnnotationType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]AnnotationType(nil), r.order...)
}

func (r *registry) Has(annotationType AnnotationType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[annotationType]
	return ok
}

// checkSchema rejects parameter specs the parser could not honour
func checkSchema(schema AnnotationSchema) error {
	for name, spec := range schema.Parameters {
		switch {
		case name == "":
			return fmt.Errorf("parameter name cannot be empty")
		case spec.Type < StringType || spec.Type > StringSliceType:
			return fmt.Errorf("invalid parameter type for %s: %d", name, spec.Type)
		case spec.Required && spec.DefaultValue != nil:
			return fmt.Errorf("required parameter %s cannot declare a default value", name)
		case spec.DefaultValue != nil && !defaultFits(spec.Type, spec.DefaultValue):
			return fmt.Errorf("default value for %s parameter %s must be %s, got %T",
				spec.Type, name, spec.Type, spec.DefaultValue)
		}
	}

	seen := make(map[string]bool, len(schema.Positional))
	for _, name := range schema.Positional {
		spec, ok := schema.Parameters[name]
		switch {
		case !ok:
			return fmt.Errorf("positional parameter %s is not declared", name)
		case spec.Type == BoolType:
			return fmt.Errorf("positional parameter %s cannot be a bool", name)
		case seen[name]:
			return fmt.Errorf("positional parameter %s is listed twice", name)
		}
		seen[name] = true
	}
	return nil
}

func defaultFits(t ParameterType, value interface{}) bool {
	switch t {
	case StringType:
		_, ok := value.(string)
		return ok
	case BoolType:
		_, ok := value.(bool)
		return ok
	case IntType:
		_, ok := value.(int)
		return ok
	case StringSliceType:
		_, ok := value.([]string)
		return ok
	}
	return false
}
