package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerSchemas_Defaults(t *testing.T) {
	for _, schema := range []AnnotationSchema{
		HTTPAnnotationSchema,
		QueueAnnotationSchema,
		DocumentStoreAnnotationSchema,
		NotificationAnnotationSchema,
		BasicAnnotationSchema,
	} {
		t.Run(schema.Type.String(), func(t *testing.T) {
			assert.Equal(t, TriggerCategory, schema.Type.Category())
			assert.True(t, schema.Repeatable)
			assert.Equal(t, 10, schema.Parameters["timeout"].DefaultValue)
			assert.Equal(t, 1024, schema.Parameters["memory"].DefaultValue)
			assert.Equal(t, []string{}, schema.Parameters["stages"].DefaultValue)
		})
	}
}

func TestQueueSchema_BatchSizeRequiredWithoutDefault(t *testing.T) {
	spec := QueueAnnotationSchema.Parameters["batchSize"]
	assert.Equal(t, IntType, spec.Type)
	assert.True(t, spec.Required)
	assert.Nil(t, spec.DefaultValue)
}

func TestHTTPSchema_Fields(t *testing.T) {
	assert.Equal(t, []string{"method", "path"}, HTTPAnnotationSchema.Positional)
	assert.Equal(t, StringType, HTTPAnnotationSchema.Parameters["method"].Type)
	assert.Equal(t, StringType, HTTPAnnotationSchema.Parameters["path"].Type)
}

func TestCategories(t *testing.T) {
	assert.Equal(t, ResourceCategory, DocumentStoreDefinitionAnnotation.Category())
	assert.Equal(t, ResourceCategory, KeyValueStoreDefinitionAnnotation.Category())
	assert.Equal(t, PermissionCategory, UsesQueueAnnotation.Category())
	assert.Equal(t, PermissionCategory, UsesBasicFunctionAnnotation.Category())
}

func TestParseAnnotationType_RoundTrip(t *testing.T) {
	for _, typ := range AllAnnotationTypes() {
		parsed, err := ParseAnnotationType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}

	_, err := ParseAnnotationType("route")
	assert.EqualError(t, err, "unknown annotation type: route")
}

func TestSchemaExamplesParse(t *testing.T) {
	parser := newTestParser(t)
	for _, schema := range GetBuiltinSchemas() {
		for _, example := range schema.Examples {
			_, err := parser.ParseAnnotation(example, testLocation)
			assert.NoError(t, err, example)
		}
	}
}

func TestParameterType_Convert(t *testing.T) {
	tests := []struct {
		typ  ParameterType
		in   interface{}
		want interface{}
	}{
		{StringSliceType, "", []string{}},
		{StringSliceType, "dev", []string{"dev"}},
		{StringSliceType, "dev, prod", []string{"dev", "prod"}},
		{StringSliceType, []string{"a"}, []string{"a"}},
		{StringType, []string{"a", "b"}, "a,b"},
		{IntType, " 30 ", 30},
		{BoolType, true, true},
		{BoolType, "false", false},
	}
	for _, tt := range tests {
		got, err := tt.typ.Convert(tt.in)
		require.NoError(t, err, "%s %v", tt.typ, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := IntType.Convert([]string{"1", "2"})
	assert.Error(t, err)
	_, err = ParameterType(99).Convert("x")
	assert.Error(t, err)
}
