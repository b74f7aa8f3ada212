package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  SourceLocation
		want string
	}{
		{"empty", SourceLocation{}, "unknown location"},
		{"file only", SourceLocation{File: "a.go"}, "a.go"},
		{"file and line", SourceLocation{File: "a.go", Line: 3}, "a.go:3"},
		{"full", SourceLocation{File: "a.go", Line: 3, Column: 7}, "a.go:3:7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.String())
		})
	}
}

func TestBaseError_Builders(t *testing.T) {
	cause := stderrors.New("disk full")
	err := WrapFileSystemError("write", "out.json", cause).
		WithLocation(SourceLocation{File: "main.go", Line: 10}).
		WithSuggestion("free some space")

	assert.Equal(t, FileSystemErrorCode, err.ErrorCode())
	assert.Equal(t, "main.go:10: cannot write out.json: disk full", err.Error())
	assert.Equal(t, "out.json", err.Context()["path"])
	assert.Equal(t, []string{"free some space"}, err.Suggestions())
	assert.True(t, stderrors.Is(err, cause))
}

func TestCodeOf(t *testing.T) {
	base := InvalidStageError("User", "prod")
	wrapped := fmt.Errorf("processing: %w", base)

	assert.Equal(t, InvalidStageErrorCode, CodeOf(wrapped))
	assert.Equal(t, UnknownErrorCode, CodeOf(stderrors.New("plain")))
	assert.Equal(t, UnknownErrorCode, CodeOf(nil))
}

func TestMultipleErrors(t *testing.T) {
	multi := NewMultipleErrors()
	assert.NoError(t, multi.ErrorOrNil())

	first := DeploymentError("Handlers.Get", "no table")
	multi.Add(first)
	multi.Add(ConfigurationError("nimbus.yml", "missing projectName"))

	require.Error(t, multi.ErrorOrNil())
	assert.Equal(t, 2, multi.Count())
	assert.Equal(t, DeploymentErrorCode, CodeOf(multi))
	assert.Contains(t, multi.Error(), "multiple errors (2 total)")
	assert.True(t, stderrors.Is(multi, first))

	var target *BaseError
	assert.True(t, stderrors.As(multi, &target))
}
