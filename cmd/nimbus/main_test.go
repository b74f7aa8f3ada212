package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

const handlersSource = `package api

import "github.com/nimbusframework/nimbus-go/pkg/nimbus"

//nimbus::http GET /health
func Health(c nimbus.RequestContext) error { return nil }
`

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"-help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: nimbus")
	assert.Contains(t, stderr.String(), "-stages")
	assert.Contains(t, stderr.String(), "-clean")
}

func TestRun_RequiresDirectory(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "At least one directory path is required")
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"-nope", "."}, &stdout, &stderr))
}

func TestRun_GenerateAndClean(t *testing.T) {
	root := writeProject(t, map[string]string{
		"go.mod":     "module example.com/status\n",
		"api/api.go": handlersSource,
		"nimbus.yml": "projectName: status\nstages: [dev, prod]\n",
	})
	outDir := filepath.Join(root, "out")
	config := filepath.Join(root, "nimbus.yml")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", config, "-out", outDir, root + "/..."}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.FileExists(t, filepath.Join(root, "api", "nimbus_handlers.go"))
	assert.FileExists(t, filepath.Join(outDir, "cloudformation-stack-update-prod.json"))
	assert.FileExists(t, filepath.Join(outDir, "nimbus-state.json"))
	assert.Contains(t, stdout.String(), "Generation complete")
	assert.Contains(t, stdout.String(), "Stages: dev, prod")

	stdout.Reset()
	code = run([]string{"-config", config, "-clean", "-out", outDir, root + "/..."}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.NoFileExists(t, filepath.Join(root, "api", "nimbus_handlers.go"))
	assert.NoDirExists(t, outDir)
	assert.Contains(t, stdout.String(), "Removed 2 generated files")
}

func TestRun_ReportsMarkerErrors(t *testing.T) {
	root := writeProject(t, map[string]string{
		"go.mod":     "module example.com/status\n",
		"api/api.go": "package api\n\n//nimbus::http GET health\nfunc Health(c interface{}) error { return nil }\n",
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", filepath.Join(root, "missing.yml"), "-out", filepath.Join(root, "out"), root + "/..."}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "ERROR: Generation Failed")
	assert.Contains(t, stderr.String(), "api.go")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"dev", "prod"}, splitList(" dev, ,prod"))
	assert.Nil(t, splitList(""))
}
