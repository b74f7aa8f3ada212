package utils

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"

	"golang.org/x/tools/imports"
)

var importOptions = &imports.Options{
	Comments:  true,
	TabIndent: true,
	TabWidth:  8,
}

// FormatGoCode formats Go source code like goimports: gofmt layout plus
// missing or unused imports fixed. filename is used for error positions.
func FormatGoCode(filename string, source []byte) ([]byte, error) {
	formatted, err := imports.Process(filename, source, importOptions)
	if err != nil {
		if parseErr := ValidateGoCode(string(source)); parseErr != nil {
			return source, fmt.Errorf("invalid Go syntax in %s: %w", filename, parseErr)
		}
		return source, fmt.Errorf("failed to format %s: %w", filename, err)
	}
	return formatted, nil
}

// FormatAndWriteGoFile formats Go code and writes it to a file. Code that does
// not format is not written.
func FormatAndWriteGoFile(filename string, code string) error {
	formatted, err := FormatGoCode(filename, []byte(code))
	if err != nil {
		return err
	}
	return os.WriteFile(filename, formatted, 0644)
}

// ValidateGoCode checks if the provided code is valid Go syntax
func ValidateGoCode(code string) error {
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "", code, parser.ParseComments)
	return err
}
