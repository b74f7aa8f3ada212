package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHandlersFile(t *testing.T) {
	data := HandlersFileData{
		PackageName: "handlers",
		Imports:     []string{NimbusImportPath},
		Receivers:   []ReceiverData{{Var: "userHandlers", Init: "NewUserHandlers()"}},
		Functions: []FunctionData{
			{
				Constructor: "HTTPFunction",
				Name:        "UserHandlers.GetUser",
				Handler:     "userHandlers.GetUser",
				TriggerType: "HTTPTrigger",
				Triggers: []TriggerData{
					{Fields: []FieldData{{"Method", `"GET"`}, {"Path", `"/users/{id}"`}}},
					{Fields: []FieldData{{"Method", `"HEAD"`}, {"Path", `"/users/{id}"`}, {"Stages", `[]string{"prod"}`}}},
				},
			},
		},
	}

	content, err := RenderHandlersFile(data)
	require.NoError(t, err)

	assert.Contains(t, content, GeneratedHeader)
	assert.Contains(t, content, "package handlers")
	assert.Contains(t, content, `"github.com/nimbusframework/nimbus-go/pkg/nimbus"`)
	assert.Contains(t, content, "func NimbusFunctions() []nimbus.Function {")
	assert.Contains(t, content, "userHandlers := NewUserHandlers()")
	assert.Contains(t, content, `nimbus.HTTPFunction("UserHandlers.GetUser", userHandlers.GetUser,`)
	assert.Contains(t, content, `nimbus.HTTPTrigger{Method: "GET", Path: "/users/{id}"},`)
	assert.Contains(t, content, `nimbus.HTTPTrigger{Method: "HEAD", Path: "/users/{id}", Stages: []string{"prod"}},`)
}

func TestRenderHandlersFile_Empty(t *testing.T) {
	content, err := RenderHandlersFile(HandlersFileData{PackageName: "empty", Imports: []string{NimbusImportPath}})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(content, GeneratedHeader))
	assert.Contains(t, content, "package empty")
	assert.Contains(t, content, "return []nimbus.Function{\n\t}")
}

func TestTemplateUtils(t *testing.T) {
	tu := NewTemplateUtils()

	assert.Equal(t, "orderHandlers", tu.VarName("OrderHandlers"))
	assert.Equal(t, "typeReceiver", tu.VarName("Type"))
	assert.Equal(t, `[]string{"dev", "prod"}`, tu.StringSlice([]string{"dev", "prod"}))
	assert.Equal(t, "NewOrders()", tu.ReceiverInit("Orders", "NewOrders"))
	assert.Equal(t, "&Orders{}", tu.ReceiverInit("Orders", ""))
}
