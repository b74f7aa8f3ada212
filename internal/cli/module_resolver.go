package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nimbusframework/nimbus-go/internal/utils"
)

// ModuleInfo is the module the scanned packages belong to
type ModuleInfo struct {
	Name string
	// Root is the directory import paths are relative to
	Root string
}

// ModuleResolver handles resolving Go module information
type ModuleResolver struct{}

// NewModuleResolver creates a new module resolver
func NewModuleResolver() *ModuleResolver {
	return &ModuleResolver{}
}

// ResolveModule finds the go.mod governing startDir. A custom module name replaces
// the declared one; without a go.mod it is rooted at the working directory.
func (r *ModuleResolver) ResolveModule(customModule, startDir string) (ModuleInfo, error) {
	module, findErr := utils.FindGoModule(startDir)

	if customModule != "" {
		if findErr == nil {
			return ModuleInfo{Name: customModule, Root: module.Dir}, nil
		}
		wd, err := os.Getwd()
		if err != nil {
			return ModuleInfo{}, fmt.Errorf("failed to get current directory: %w", err)
		}
		return ModuleInfo{Name: customModule, Root: wd}, nil
	}

	if errors.Is(findErr, utils.ErrNoGoMod) {
		return ModuleInfo{}, fmt.Errorf("failed to determine module name: %w (consider using -module flag)", findErr)
	}
	if findErr != nil {
		return ModuleInfo{}, fmt.Errorf("failed to determine module name: %w", findErr)
	}
	return ModuleInfo{Name: module.Path, Root: module.Dir}, nil
}

// BuildPackagePath builds the full import path for a package directory
func (r *ModuleResolver) BuildPackagePath(module ModuleInfo, packageDir string) (string, error) {
	absPackageDir, err := filepath.Abs(packageDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve package directory: %w", err)
	}

	relPath, err := filepath.Rel(module.Root, absPackageDir)
	if err != nil {
		return "", fmt.Errorf("failed to calculate relative path: %w", err)
	}

	importPath := filepath.ToSlash(relPath)
	if importPath == "." {
		return module.Name, nil
	}
	if importPath == ".." || strings.HasPrefix(importPath, "../") {
		return "", fmt.Errorf("package directory %s is outside module %s", packageDir, module.Name)
	}

	return module.Name + "/" + importPath, nil
}
