package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleResolver_ResolveModule(t *testing.T) {
	root := writeProject(t, map[string]string{
		"go.mod":         "module example.com/shop\n\ngo 1.25\n",
		"orders/main.go": "package orders",
	})
	resolver := NewModuleResolver()

	module, err := resolver.ResolveModule("", filepath.Join(root, "orders"))
	require.NoError(t, err)
	assert.Equal(t, ModuleInfo{Name: "example.com/shop", Root: root}, module)

	custom, err := resolver.ResolveModule("example.com/renamed", filepath.Join(root, "orders"))
	require.NoError(t, err)
	assert.Equal(t, ModuleInfo{Name: "example.com/renamed", Root: root}, custom)
}

func TestModuleResolver_ResolveModuleWithoutGoMod(t *testing.T) {
	dir := t.TempDir()
	resolver := NewModuleResolver()

	_, err := resolver.ResolveModule("", dir)
	if err == nil {
		// a go.mod above the temp directory governs it
		t.Skip("temp directory is inside a Go module")
	}
	assert.Contains(t, err.Error(), "-module")

	wd, err := os.Getwd()
	require.NoError(t, err)
	module, err := resolver.ResolveModule("example.com/custom", dir)
	require.NoError(t, err)
	assert.Equal(t, ModuleInfo{Name: "example.com/custom", Root: wd}, module)
}

func TestModuleResolver_BuildPackagePath(t *testing.T) {
	resolver := NewModuleResolver()
	module := ModuleInfo{Name: "example.com/shop", Root: "/src/shop"}

	testCases := []struct {
		dir     string
		want    string
		wantErr bool
	}{
		{"/src/shop", "example.com/shop", false},
		{"/src/shop/internal/orders", "example.com/shop/internal/orders", false},
		{"/src/other", "", true},
	}

	for _, tc := range testCases {
		got, err := resolver.BuildPackagePath(module, tc.dir)
		if tc.wantErr {
			assert.Error(t, err, tc.dir)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}
