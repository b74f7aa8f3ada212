package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nimbusframework/nimbus-go/internal/cli"
	"github.com/nimbusframework/nimbus-go/internal/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("nimbus", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		projectFlag = flags.String("project", "", "Project name used in function names and exports (defaults to nimbus.yml, then the module name)")
		stagesFlag  = flags.String("stages", "", "Comma-separated stages that receive unstaged resources (default \"dev\")")
		outFlag     = flags.String("out", "", "Directory for the CloudFormation templates and nimbus-state.json (default \".nimbus\")")
		configFlag  = flags.String("config", cli.ProjectFileName, "Project file to read")
		moduleFlag  = flags.String("module", "", "Custom module name for imports (defaults to go.mod module)")
		verboseFlag = flags.Bool("verbose", false, "Enable verbose output and detailed error reporting")
		quietFlag   = flags.Bool("quiet", false, "Only show errors and final results")
		cleanFlag   = flags.Bool("clean", false, "Delete nimbus_handlers.go files and the output directory")
		helpFlag    = flags.Bool("help", false, "Show help information")
	)

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: nimbus [options] <directory-paths...>\n\n")
		fmt.Fprintf(stderr, "Nimbus Serverless Generator\n")
		fmt.Fprintf(stderr, "Scans Go packages for //nimbus:: markers, writes CloudFormation templates per stage\n")
		fmt.Fprintf(stderr, "and generates nimbus_handlers.go registration files.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nArguments:\n")
		fmt.Fprintf(stderr, "  directory-paths    One or more directories to scan; './...' scans recursively\n")
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  nimbus ./...                          # Generate for every package\n")
		fmt.Fprintf(stderr, "  nimbus -stages dev,prod ./internal/...  # Two stages\n")
		fmt.Fprintf(stderr, "  nimbus -clean ./...                   # Remove generated files\n")
	}

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *helpFlag {
		flags.Usage()
		return 0
	}

	directories := flags.Args()
	if len(directories) == 0 {
		fmt.Fprintf(stderr, "Error: At least one directory path is required\n\n")
		flags.Usage()
		return 1
	}

	level := utils.DiagnosticInfo
	switch {
	case *quietFlag:
		level = utils.DiagnosticError
	case *verboseFlag:
		level = utils.DiagnosticDebug
	}
	diagnostics := utils.NewDiagnosticSystemWithWriters(level, stdout, stderr)
	reporter := cli.NewDiagnosticReporter(stderr, *verboseFlag)

	projectFile, err := cli.LoadProjectFile(*configFlag)
	if err != nil {
		reporter.ReportError(err)
		return 1
	}

	config := cli.Config{
		Directories: directories,
		ModuleName:  *moduleFlag,
		ProjectName: *projectFlag,
		Stages:      splitList(*stagesFlag),
		OutputDir:   *outFlag,
		Verbose:     *verboseFlag,
	}
	config.ApplyProjectFile(projectFile)
	if projectFile != nil {
		diagnostics.Verbose("Loaded %s", *configFlag)
	}

	if *cleanFlag {
		outputDir := config.OutputDir
		if outputDir == "" {
			outputDir = cli.DefaultOutputDir
		}
		removed, err := cli.NewCleaner().Clean(directories, outputDir)
		if err != nil {
			reporter.ReportError(err)
			return 1
		}
		for _, path := range removed {
			diagnostics.Verbose("Removed %s", path)
		}
		diagnostics.Success("Removed %d generated files", len(removed))
		return 0
	}

	diagnostics.NimbusHeader("Generating serverless functions")
	generator := cli.NewGenerator(diagnostics)
	if err := generator.Run(config); err != nil {
		reporter.ReportError(err)
		return 1
	}

	summary := generator.GetSummary()
	diagnostics.Summary("Summary", []string{
		"Packages processed",
		"Functions",
		"Data models",
		"Stages",
		"Handler files",
		"State",
	}, map[string]interface{}{
		"Packages processed": summary.PackagesProcessed,
		"Functions":          summary.FunctionsFound,
		"Data models":        summary.DataModelsFound,
		"Stages":             strings.Join(summary.Stages, ", "),
		"Handler files":      len(summary.GeneratedFiles),
		"State":              summary.StateFile,
	})
	diagnostics.GenerationComplete()
	return 0
}

// splitList splits a comma-separated flag value, dropping empty items
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
