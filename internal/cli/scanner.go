package cli

import (
	"path/filepath"
	"strings"

	"github.com/nimbusframework/nimbus-go/internal/errors"
	"github.com/nimbusframework/nimbus-go/internal/utils"
)

// DirectoryScanner handles recursive directory scanning for Go files
type DirectoryScanner struct {
	fileProcessor *utils.FileProcessor
}

// NewDirectoryScanner creates a new directory scanner
func NewDirectoryScanner() *DirectoryScanner {
	return &DirectoryScanner{
		fileProcessor: utils.NewFileProcessor(),
	}
}

// ResolvePatterns turns directory arguments into absolute base directories.
// Go-style "./..." suffixes are stripped; scanning below a base is always recursive.
func (s *DirectoryScanner) ResolvePatterns(patterns []string) ([]string, error) {
	dirs := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		baseDir := pattern
		if strings.HasSuffix(pattern, "/...") || pattern == "..." {
			baseDir = strings.TrimSuffix(strings.TrimSuffix(pattern, "..."), "/")
		}
		if baseDir == "" {
			baseDir = "."
		}

		cleanPath, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, errors.WrapFileSystemError("resolve", baseDir, err)
		}
		dirs = append(dirs, cleanPath)
	}
	return dirs, nil
}

// ScanDirectories returns every package directory below the given patterns
func (s *DirectoryScanner) ScanDirectories(patterns []string) ([]string, error) {
	dirs, err := s.ResolvePatterns(patterns)
	if err != nil {
		return nil, err
	}
	return s.fileProcessor.PackageDirs(dirs)
}

// FileProcessor exposes the processor for callers that walk the same trees
func (s *DirectoryScanner) FileProcessor() *utils.FileProcessor {
	return s.fileProcessor
}
