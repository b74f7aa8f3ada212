package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(QueueAnnotationSchema))

	assert.True(t, registry.Has(QueueAnnotation))
	assert.False(t, registry.Has(HTTPAnnotation))

	schema, err := registry.Schema(QueueAnnotation)
	require.NoError(t, err)
	assert.Equal(t, []string{"queue"}, schema.Positional)

	_, err = registry.Schema(HTTPAnnotation)
	assert.EqualError(t, err, "annotation type http is not registered")
}

func TestRegistry_RejectsInvalidSchemas(t *testing.T) {
	tests := []struct {
		name   string
		schema AnnotationSchema
		errMsg string
	}{
		{
			name:   "unknown type",
			schema: AnnotationSchema{Type: AnnotationType(99)},
			errMsg: "unknown marker type 99",
		},
		{
			name: "wrong default type",
			schema: AnnotationSchema{Type: BasicAnnotation, Parameters: map[string]ParameterSpec{
				"timeout": {Type: IntType, DefaultValue: "10"},
			}},
			errMsg: "default value for int parameter timeout must be int, got string",
		},
		{
			name: "required with default",
			schema: AnnotationSchema{Type: BasicAnnotation, Parameters: map[string]ParameterSpec{
				"timeout": {Type: IntType, Required: true, DefaultValue: 10},
			}},
			errMsg: "cannot declare a default value",
		},
		{
			name: "undeclared positional",
			schema: AnnotationSchema{Type: BasicAnnotation, Positional: []string{"name"},
				Parameters: map[string]ParameterSpec{}},
			errMsg: "positional parameter name is not declared",
		},
		{
			name: "bool positional",
			schema: AnnotationSchema{Type: BasicAnnotation, Positional: []string{"flag"},
				Parameters: map[string]ParameterSpec{"flag": {Type: BoolType}}},
			errMsg: "cannot be a bool",
		},
		{
			name: "repeated positional",
			schema: AnnotationSchema{Type: QueueAnnotation, Positional: []string{"queue", "queue"},
				Parameters: map[string]ParameterSpec{"queue": {Type: StringType}}},
			errMsg: "listed twice",
		},
		{
			name: "unknown parameter type",
			schema: AnnotationSchema{Type: BasicAnnotation, Parameters: map[string]ParameterSpec{
				"x": {Type: ParameterType(42)},
			}},
			errMsg: "invalid parameter type for x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.schema)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, RegisterBuiltinSchemas(registry))

	err := RegisterBuiltinSchemas(registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to register http schema")
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_TypesKeepRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, RegisterBuiltinSchemas(registry))
	assert.Equal(t, AllAnnotationTypes(), registry.Types())

	reversed := NewRegistry()
	require.NoError(t, reversed.Register(BasicAnnotationSchema))
	require.NoError(t, reversed.Register(HTTPAnnotationSchema))
	assert.Equal(t, []AnnotationType{BasicAnnotation, HTTPAnnotation}, reversed.Types())
}

func TestDefaultRegistry(t *testing.T) {
	first, err := DefaultRegistry()
	require.NoError(t, err)
	second, err := DefaultRegistry()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.True(t, first.Has(UsesBasicFunctionAnnotation))
}
