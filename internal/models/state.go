package models

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// CloudProvider names the provider the templates target
type CloudProvider string

const AWS CloudProvider = "AWS"

// NimbusState is the deployment state written next to the templates. Deployment tooling
// reads it to know which artifacts to upload and which values to report per stage.
type NimbusState struct {
	ProjectName          string                           `json:"projectName"`
	CloudProvider        CloudProvider                    `json:"cloudProvider"`
	Region               string                           `json:"region,omitempty"`
	CompilationTimeStamp string                           `json:"compilationTimeStamp"`
	AfterDeployments     map[string][]string              `json:"afterDeployments"`
	FileUploads          map[string]map[string][]string   `json:"fileUploads"`
	Exports              map[string][]ExportInformation   `json:"exports"`
	HandlerFiles         []HandlerInformation             `json:"handlerFiles"`
	Assemble             bool                             `json:"assemble"`
	Stages               []string                         `json:"stages"`
	Functions            map[string][]FunctionInformation `json:"functions"`
}

// ExportInformation is a value reported to the user after deploying a stage
type ExportInformation struct {
	ExportName    string `json:"exportName"`
	ExportMessage string `json:"exportMessage"`
	Value         string `json:"value"`
}

// HandlerInformation ties a package's functions to the artifact that contains them
type HandlerInformation struct {
	HandlerPackage      string   `json:"handlerPackage"`
	HandlerFile         string   `json:"handlerFile"`
	ReplacementVariable string   `json:"replacementVariable"`
	Stages              []string `json:"stages"`
}

// FunctionInformation records one deployed function for a stage
type FunctionInformation struct {
	Name         string `json:"name"`
	FunctionName string `json:"functionName"`
	Trigger      string `json:"trigger"`
	Timeout      int    `json:"timeout"`
	Memory       int    `json:"memory"`
}

// NewNimbusState creates an empty state for a project
func NewNimbusState(projectName, timestamp string, assemble bool) *NimbusState {
	return &NimbusState{
		ProjectName:          projectName,
		CloudProvider:        AWS,
		CompilationTimeStamp: timestamp,
		AfterDeployments:     make(map[string][]string),
		FileUploads:          make(map[string]map[string][]string),
		Exports:              make(map[string][]ExportInformation),
		HandlerFiles:         make([]HandlerInformation, 0),
		Assemble:             assemble,
		Functions:            make(map[string][]FunctionInformation),
	}
}

// AddExport appends an export to a stage unless one with the same name exists
func (s *NimbusState) AddExport(stage string, export ExportInformation) {
	for _, existing := range s.Exports[stage] {
		if existing.ExportName == export.ExportName {
			return
		}
	}
	s.Exports[stage] = append(s.Exports[stage], export)
}

// AddHandlerFile records the artifact for a package, merging stages when the package is already known
func (s *NimbusState) AddHandlerFile(info HandlerInformation) {
	for i := range s.HandlerFiles {
		if s.HandlerFiles[i].HandlerPackage == info.HandlerPackage {
			s.HandlerFiles[i].Stages = mergeStages(s.HandlerFiles[i].Stages, info.Stages)
			return
		}
	}
	info.Stages = mergeStages(nil, info.Stages)
	s.HandlerFiles = append(s.HandlerFiles, info)
}

// AddFunction records a deployed function for a stage
func (s *NimbusState) AddFunction(stage string, info FunctionInformation) {
	for _, existing := range s.Functions[stage] {
		if existing.Name == info.Name {
			return
		}
	}
	s.Functions[stage] = append(s.Functions[stage], info)
}

// AddStage records a stage that has templates
func (s *NimbusState) AddStage(stage string) {
	s.Stages = mergeStages(s.Stages, []string{stage})
}

// Save writes the state as indented JSON
func (s *NimbusState) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode nimbus state: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadNimbusState reads a state file written by Save
func LoadNimbusState(path string) (*NimbusState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state NimbusState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode nimbus state %s: %w", path, err)
	}
	return &state, nil
}

func mergeStages(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing)+len(extra))
	merged := make([]string, 0, len(existing)+len(extra))
	for _, stage := range append(append([]string{}, existing...), extra...) {
		if !seen[stage] {
			seen[stage] = true
			merged = append(merged, stage)
		}
	}
	sort.Strings(merged)
	return merged
}
