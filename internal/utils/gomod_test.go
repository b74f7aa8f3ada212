package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindGoModule(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/shop\n\ngo 1.25\n"), 0o644))
	nested := filepath.Join(root, "internal", "orders")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	module, err := FindGoModule(nested)
	require.NoError(t, err)
	assert.Equal(t, &GoModule{Path: "example.com/shop", Dir: root, GoVersion: "1.25"}, module)
}

func TestParseGoModule(t *testing.T) {
	_, err := ParseGoModule("/src/go.mod", []byte("go 1.25\n"))
	assert.ErrorContains(t, err, "declares no module")

	_, err = ParseGoModule("/src/go.mod", []byte("module\n"))
	assert.Error(t, err)

	module, err := ParseGoModule("/src/go.mod", []byte("module example.com/tools\n"))
	require.NoError(t, err)
	assert.Equal(t, "example.com/tools", module.Path)
	assert.Equal(t, "/src", module.Dir)
	assert.Empty(t, module.GoVersion)
}
