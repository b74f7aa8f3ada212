package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// ErrNoGoMod is returned when no go.mod governs a directory
var ErrNoGoMod = errors.New("go.mod file not found")

// GoModule is the module declared by a go.mod file
type GoModule struct {
	Path      string
	Dir       string
	GoVersion string
}

// FindGoModule parses the nearest go.mod at or above dir
func FindGoModule(dir string) (*GoModule, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	for {
		file := filepath.Join(current, "go.mod")
		data, err := os.ReadFile(file)
		if err == nil {
			return ParseGoModule(file, data)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return nil, ErrNoGoMod
		}
		current = parent
	}
}

// ParseGoModule parses the content of the go.mod file at path
func ParseGoModule(path string, data []byte) (*GoModule, error) {
	mf, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if mf.Module == nil {
		return nil, fmt.Errorf("%s declares no module", path)
	}

	module := &GoModule{Path: mf.Module.Mod.Path, Dir: filepath.Dir(path)}
	if mf.Go != nil {
		module.GoVersion = mf.Go.Version
	}
	return module, nil
}
