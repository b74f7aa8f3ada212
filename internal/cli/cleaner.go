package cli

import (
	"os"

	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
)

// Cleaner handles cleaning up generated files
type Cleaner struct {
	scanner *DirectoryScanner
}

// NewCleaner creates a new cleaner
func NewCleaner() *Cleaner {
	return &Cleaner{
		scanner: NewDirectoryScanner(),
	}
}

// Clean removes every generated nimbus_handlers.go below the directories and the output
// directory with its templates and state. It returns the removed paths.
func (c *Cleaner) Clean(directories []string, outputDir string) ([]string, error) {
	dirs, err := c.scanner.ResolvePatterns(directories)
	if err != nil {
		return nil, err
	}

	removed, err := c.scanner.FileProcessor().RemoveGenerated(dirs)
	if err != nil {
		return removed, err
	}

	if outputDir != "" {
		if _, err := os.Stat(outputDir); err == nil {
			if err := os.RemoveAll(outputDir); err != nil {
				return removed, nimbuserrors.WrapFileSystemError("remove", outputDir, err)
			}
			removed = append(removed, outputDir)
		}
	}
	return removed, nil
}
