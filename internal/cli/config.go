package cli

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"regexp"

	"gopkg.in/yaml.v3"

	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
)

const (
	// ProjectFileName is the optional project file read from the working directory
	ProjectFileName = "nimbus.yml"

	// DefaultOutputDir receives the templates and the state file
	DefaultOutputDir = ".nimbus"

	// StateFileName is the deployment state written next to the templates
	StateFileName = "nimbus-state.json"
)

var projectNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// Config holds the configuration for the CLI generator
type Config struct {
	// Directories is the list of directories to scan for marked Go files
	Directories []string

	// ModuleName is the custom module name for imports
	// If empty, will be determined from go.mod file
	ModuleName string

	// ProjectName prefixes function names and exports. Defaults to the last
	// element of the module path.
	ProjectName string

	// Stages receive every resource whose markers list no stages
	Stages []string

	Region    string
	OutputDir string
	Assemble  bool

	// Verbose enables detailed logging and error reporting
	Verbose bool
}

// ProjectFile is the nimbus.yml project file
type ProjectFile struct {
	ProjectName string   `yaml:"projectName"`
	Stages      []string `yaml:"stages"`
	Region      string   `yaml:"region"`
	OutputDir   string   `yaml:"outputDir"`
	Assemble    bool     `yaml:"assemble"`
}

// LoadProjectFile reads a project file. A missing file yields nil and no error.
func LoadProjectFile(filename string) (*ProjectFile, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, nimbuserrors.WrapConfigurationError(filename, "read", err)
	}

	var file ProjectFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nimbuserrors.WrapConfigurationError(filename, "parse", err).
			WithSuggestion("Check the YAML syntax of " + ProjectFileName)
	}
	return &file, nil
}

// ApplyProjectFile fills every setting the flags left empty from the project file
func (c *Config) ApplyProjectFile(file *ProjectFile) {
	if file == nil {
		return
	}
	if c.ProjectName == "" {
		c.ProjectName = file.ProjectName
	}
	if len(c.Stages) == 0 {
		c.Stages = file.Stages
	}
	if c.Region == "" {
		c.Region = file.Region
	}
	if c.OutputDir == "" {
		c.OutputDir = file.OutputDir
	}
	c.Assemble = c.Assemble || file.Assemble
}

// ApplyDefaults sets the output directory, the default stage and, once the module
// is known, the project name
func (c *Config) ApplyDefaults(moduleName string) {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if len(c.Stages) == 0 {
		c.Stages = []string{"dev"}
	}
	if c.ProjectName == "" && moduleName != "" {
		c.ProjectName = path.Base(moduleName)
	}
}

// Validate checks the settings the processor depends on
func (c *Config) Validate() error {
	if len(c.Directories) == 0 {
		return nimbuserrors.ConfigurationError("directories", "at least one directory is required")
	}
	if !projectNamePattern.MatchString(c.ProjectName) {
		return nimbuserrors.ConfigurationError("projectName", "'"+c.ProjectName+"' must start with a letter and contain only letters, digits and '-'").
			WithSuggestion("Set projectName in " + ProjectFileName + " or pass -project")
	}
	seen := make(map[string]bool, len(c.Stages))
	for _, stage := range c.Stages {
		if stage == "" || seen[stage] {
			return nimbuserrors.ConfigurationError("stages", "stage names must be unique and non-empty")
		}
		seen[stage] = true
	}
	return nil
}
