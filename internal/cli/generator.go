package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nimbusframework/nimbus-go/internal/deployment"
	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
	"github.com/nimbusframework/nimbus-go/internal/generator"
	"github.com/nimbusframework/nimbus-go/internal/models"
	"github.com/nimbusframework/nimbus-go/internal/parser"
	"github.com/nimbusframework/nimbus-go/internal/utils"
)

// GenerationSummary describes what a run produced
type GenerationSummary struct {
	PackagesProcessed int
	FunctionsFound    int
	DataModelsFound   int
	Stages            []string
	GeneratedFiles    []string
	TemplateFiles     []string
	StateFile         string
}

// Generator coordinates the CLI generation process
type Generator struct {
	scanner        *DirectoryScanner
	moduleResolver *ModuleResolver
	parser         *parser.Parser
	codeGenerator  generator.CodeGenerator
	diagnostics    *utils.DiagnosticSystem
	now            func() time.Time
	summary        GenerationSummary
}

// NewGenerator creates a new CLI generator
func NewGenerator(diagnostics *utils.DiagnosticSystem) *Generator {
	return &Generator{
		scanner:        NewDirectoryScanner(),
		moduleResolver: NewModuleResolver(),
		parser:         parser.NewParser(),
		codeGenerator:  generator.NewGenerator(),
		diagnostics:    diagnostics,
		now:            time.Now,
	}
}

// GetSummary returns the generation summary
func (g *Generator) GetSummary() GenerationSummary {
	return g.summary
}

// Run scans the directories, writes the templates and state for every stage and
// generates nimbus_handlers.go for each package with triggers
func (g *Generator) Run(config Config) error {
	g.summary = GenerationSummary{}
	startTime := g.now()
	g.diagnostics.Verbose("Starting generation at %s", startTime.Format("15:04:05"))
	g.diagnostics.Debug("Scanning directories: %v", config.Directories)

	if len(config.Directories) == 0 {
		return nimbuserrors.ConfigurationError("directories", "at least one directory is required")
	}

	g.diagnostics.PhaseHeader("Discovery")
	bases, err := g.scanner.ResolvePatterns(config.Directories)
	if err != nil {
		return err
	}
	module, err := g.moduleResolver.ResolveModule(config.ModuleName, bases[0])
	if err != nil {
		return nimbuserrors.Wrap(nimbuserrors.ConfigurationErrorCode, "failed to resolve module name", err).
			WithSuggestions(
				"Check your go.mod file exists and is valid",
				"Try specifying -module explicitly",
			)
	}
	g.diagnostics.Debug("Resolved module %s rooted at %s", module.Name, module.Root)

	config.ApplyDefaults(module.Name)
	if err := config.Validate(); err != nil {
		return err
	}

	packageDirs, err := g.scanner.ScanDirectories(config.Directories)
	if err != nil {
		return nimbuserrors.Wrap(nimbuserrors.FileSystemErrorCode, "failed to scan directories", err).
			WithContext("directories", config.Directories)
	}
	if len(packageDirs) == 0 {
		return nimbuserrors.New(nimbuserrors.FileSystemErrorCode, "no Go packages found in specified directories").
			WithContext("directories", config.Directories).
			WithSuggestion("Try scanning parent directories or use the './...' pattern")
	}
	g.diagnostics.PhaseItem(fmt.Sprintf("Found %d packages", len(packageDirs)))

	packages, err := g.parsePackages(module, packageDirs)
	if err != nil {
		return err
	}
	g.diagnostics.PhaseItem(fmt.Sprintf("Found %d functions and %d data models", g.summary.FunctionsFound, g.summary.DataModelsFound))

	g.diagnostics.PhaseHeader("Deployment")
	processor := deployment.NewProcessor(deployment.Config{
		ProjectName: config.ProjectName,
		Stages:      config.Stages,
		Timestamp:   startTime.UTC().Format("20060102150405"),
		Assemble:    config.Assemble,
	})
	if err := processor.Process(packages); err != nil {
		return err
	}
	if err := g.writeDeployment(processor, config); err != nil {
		return err
	}

	g.diagnostics.PhaseHeader("Code Generation")
	for _, pkg := range packages {
		if !pkg.HasTriggers() {
			continue
		}
		if err := g.writeHandlers(pkg); err != nil {
			return err
		}
	}

	g.diagnostics.Verbose("Generation finished in %s", g.now().Sub(startTime).Round(time.Millisecond))
	return nil
}

// parsePackages parses every package directory and collects all problems before failing
func (g *Generator) parsePackages(module ModuleInfo, packageDirs []string) ([]*models.PackageMetadata, error) {
	errs := nimbuserrors.NewMultipleErrors()
	var packages []*models.PackageMetadata

	for _, dir := range packageDirs {
		g.diagnostics.Debug("Parsing %s", dir)
		metadata, err := g.parser.ParseDirectory(dir)
		if err != nil {
			addError(errs, err)
			continue
		}
		g.summary.PackagesProcessed++
		if metadata.IsEmpty() {
			continue
		}

		importPath, err := g.moduleResolver.BuildPackagePath(module, dir)
		if err != nil {
			addError(errs, err)
			continue
		}
		metadata.ImportPath = importPath

		g.summary.FunctionsFound += len(metadata.Functions)
		g.summary.DataModelsFound += len(metadata.DataModels)
		g.diagnostics.Verbose("%s: %d functions, %d data models", importPath, len(metadata.Functions), len(metadata.DataModels))
		packages = append(packages, metadata)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return packages, nil
}

func (g *Generator) writeDeployment(processor *deployment.Processor, config Config) error {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nimbuserrors.WrapFileSystemError("create", config.OutputDir, err)
	}

	files := processor.Files()
	for _, stage := range processor.Stages() {
		written, err := files[stage].Write(config.OutputDir)
		if err != nil {
			return nimbuserrors.WrapFileSystemError("write", config.OutputDir, err).WithContext("stage", stage)
		}
		for _, path := range written {
			g.diagnostics.PhaseProgress("Writing " + path)
		}
		g.summary.TemplateFiles = append(g.summary.TemplateFiles, written...)
	}
	g.summary.Stages = processor.Stages()

	state := processor.State()
	state.Region = config.Region
	statePath := filepath.Join(config.OutputDir, StateFileName)
	if err := state.Save(statePath); err != nil {
		return nimbuserrors.WrapFileSystemError("write", statePath, err)
	}
	g.summary.StateFile = statePath
	g.diagnostics.PhaseItem(fmt.Sprintf("Wrote templates for stages %s", strings.Join(g.summary.Stages, ", ")))
	return nil
}

func (g *Generator) writeHandlers(pkg *models.PackageMetadata) error {
	file, err := g.codeGenerator.GenerateHandlers(pkg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(file.FilePath, []byte(file.Content), 0644); err != nil {
		return nimbuserrors.WrapFileSystemError("write", file.FilePath, err)
	}
	g.diagnostics.PhaseProgress("Writing " + file.FilePath)
	g.summary.GeneratedFiles = append(g.summary.GeneratedFiles, file.FilePath)
	return nil
}

func addError(errs *nimbuserrors.MultipleErrors, err error) {
	switch e := err.(type) {
	case *nimbuserrors.MultipleErrors:
		for _, inner := range e.Errors {
			errs.Add(inner)
		}
	case nimbuserrors.NimbusError:
		errs.Add(e)
	default:
		errs.Add(nimbuserrors.Wrap(nimbuserrors.UnknownErrorCode, "failed to process package", err))
	}
}
