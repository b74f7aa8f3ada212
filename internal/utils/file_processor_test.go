package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestIsSourceFile(t *testing.T) {
	assert.True(t, IsSourceFile("orders.go"))
	assert.False(t, IsSourceFile("orders_test.go"))
	assert.False(t, IsSourceFile(GeneratedFileName))
	assert.False(t, IsSourceFile("README.md"))
}

func TestFileProcessor_PackageDirs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"main.go":                      "package main",
		"handlers/users.go":            "package handlers",
		"handlers/orders/orders.go":    "package orders",
		"handlers/only/only_test.go":   "package only",
		"docs/README.md":               "# docs",
		"vendor/dep/dep.go":            "package dep",
		".hidden/secret.go":            "package secret",
		"_examples/sample/sample.go":   "package sample",
		"handlers/testdata/fixture.go": "package fixture",
	})

	dirs, err := NewFileProcessor().PackageDirs([]string{root, root})
	require.NoError(t, err)

	assert.Equal(t, []string{
		root,
		filepath.Join(root, "handlers"),
		filepath.Join(root, "handlers", "orders"),
	}, dirs)

	_, err = NewFileProcessor().PackageDirs([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
}

func TestFileProcessor_RemoveGenerated(t *testing.T) {
	root := t.TempDir()
	generated := GeneratedHeader + "\n\npackage handlers\n"
	writeFiles(t, root, map[string]string{
		"handlers/users.go":               "package handlers",
		"handlers/nimbus_handlers.go":     generated,
		"handlers/api/nimbus_handlers.go": GeneratedHeader + "\n\npackage api\n",
		"handlers/own/nimbus_handlers.go": "package own\n",
		"vendor/dep/nimbus_handlers.go":   generated,
	})

	removed, err := NewFileProcessor().RemoveGenerated([]string{root, filepath.Join(root, "missing")})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "handlers", "nimbus_handlers.go"),
		filepath.Join(root, "handlers", "api", "nimbus_handlers.go"),
	}, removed)
	assert.FileExists(t, filepath.Join(root, "handlers", "users.go"))
	assert.FileExists(t, filepath.Join(root, "handlers", "own", "nimbus_handlers.go"))
	assert.FileExists(t, filepath.Join(root, "vendor", "dep", "nimbus_handlers.go"))
}
