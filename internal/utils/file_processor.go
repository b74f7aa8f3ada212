package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// GeneratedFileName is the registration file the generator writes into each package
	GeneratedFileName = "nimbus_handlers.go"

	// GeneratedHeader is the first line of every generated registration file
	GeneratedHeader = "// Code generated by nimbus. DO NOT EDIT."
)

// directories the go tool never builds from, plus the generator's own output
var skippedDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
	".nimbus":      true,
}

// FileProcessor walks source trees for the scanner and the cleaner
type FileProcessor struct{}

func NewFileProcessor() *FileProcessor {
	return &FileProcessor{}
}

// IsSourceFile reports whether a file name is scanned for markers.
// Tests and generated registration files are not.
func IsSourceFile(name string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		name != GeneratedFileName
}

// SkipDir reports whether a directory below a scan root is ignored
func SkipDir(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	return skippedDirs[name]
}

// PackageDirs returns the sorted directories below roots holding at least one source file
func (fp *FileProcessor) PackageDirs(roots []string) ([]string, error) {
	found := make(map[string]bool)

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				if path != root && SkipDir(entry.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if IsSourceFile(entry.Name()) {
				found[filepath.Dir(path)] = true
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}

	dirs := make([]string, 0, len(found))
	for dir := range found {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// RemoveGenerated deletes the registration files below roots and returns their
// paths. A file with the registration file's name but without the generated
// header is left in place. Missing roots are ignored.
func (fp *FileProcessor) RemoveGenerated(roots []string) ([]string, error) {
	var removed []string

	for _, root := range roots {
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if entry.IsDir() {
				if path != root && SkipDir(entry.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if entry.Name() != GeneratedFileName {
				return nil
			}

			generated, err := IsGenerated(path)
			if err != nil || !generated {
				return err
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove file %s: %w", path, err)
			}
			removed = append(removed, path)
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("failed to clean directory %s: %w", root, err)
		}
	}

	return removed, nil
}

// IsGenerated reports whether the file starts with the generated header
func IsGenerated(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	return strings.TrimSpace(scanner.Text()) == GeneratedHeader, nil
}
