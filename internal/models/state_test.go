package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNimbusState_ExportsAreDeduplicated(t *testing.T) {
	state := NewNimbusState("shop", "20261018120000", false)

	export := ExportInformation{ExportName: "RestApiUrl", ExportMessage: "Created REST API. Base URL is ", Value: "${NIMBUS_REST_API_URL}"}
	state.AddExport("dev", export)
	state.AddExport("dev", export)
	state.AddExport("prod", export)

	assert.Len(t, state.Exports["dev"], 1)
	assert.Len(t, state.Exports["prod"], 1)
}

func TestNimbusState_HandlerFilesMergeStages(t *testing.T) {
	state := NewNimbusState("shop", "20261018120000", false)

	state.AddHandlerFile(HandlerInformation{HandlerPackage: "example.com/shop/orders", HandlerFile: "bootstrap.zip", Stages: []string{"prod"}})
	state.AddHandlerFile(HandlerInformation{HandlerPackage: "example.com/shop/orders", HandlerFile: "bootstrap.zip", Stages: []string{"dev", "prod"}})

	require.Len(t, state.HandlerFiles, 1)
	assert.Equal(t, []string{"dev", "prod"}, state.HandlerFiles[0].Stages)
}

func TestNimbusState_SaveAndLoad(t *testing.T) {
	state := NewNimbusState("shop", "20261018120000", true)
	state.AddStage("dev")
	state.AddFunction("dev", FunctionInformation{Name: "Orders.Create", FunctionName: "shop-dev-orders-create", Trigger: "http", Timeout: 10, Memory: 1024})

	path := filepath.Join(t.TempDir(), "nimbus-state.json")
	require.NoError(t, state.Save(path))

	loaded, err := LoadNimbusState(path)
	require.NoError(t, err)
	assert.Equal(t, AWS, loaded.CloudProvider)
	assert.True(t, loaded.Assemble)
	assert.Equal(t, []string{"dev"}, loaded.Stages)
	assert.Equal(t, state.Functions, loaded.Functions)
}
