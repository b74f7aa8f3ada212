package cloudformation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const formatVersion = "2010-09-09"

// Resource is one entry of a template's Resources section
type Resource interface {
	LogicalID() string
	ResourceType() string
	Properties() map[string]interface{}
	DependsOn() []string
}

// ArnResource is a resource that IAM statements can target
type ArnResource interface {
	Resource
	Arn() interface{}
}

// base carries the logical id and dependencies every resource has
type base struct {
	id        string
	dependsOn []string
}

func (b *base) LogicalID() string { return b.id }

func (b *base) DependsOn() []string { return b.dependsOn }

// AddDependsOn records resources that must be created first
func (b *base) AddDependsOn(ids ...string) {
	for _, id := range ids {
		if !contains(b.dependsOn, id) {
			b.dependsOn = append(b.dependsOn, id)
		}
	}
}

// Output is an entry of a template's Outputs section
type Output struct {
	ID          string
	Description string
	Value       interface{}
	ExportName  string
}

// Template is a CloudFormation template whose resources and outputs keep insertion order
type Template struct {
	Description string

	resources []Resource
	index     map[string]Resource
	outputs   []Output
}

// NewTemplate creates an empty template
func NewTemplate(description string) *Template {
	return &Template{
		Description: description,
		index:       make(map[string]Resource),
	}
}

// DuplicateResourceError is returned when a logical id is already taken
type DuplicateResourceError struct {
	ID       string
	Existing Resource
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("logical id %s is already used by another %s", e.ID, e.Existing.ResourceType())
}

// AddResource adds a resource whose logical id must not be taken yet
func (t *Template) AddResource(r Resource) error {
	if existing, exists := t.index[r.LogicalID()]; exists {
		return &DuplicateResourceError{ID: r.LogicalID(), Existing: existing}
	}
	t.index[r.LogicalID()] = r
	t.resources = append(t.resources, r)
	return nil
}

// Ensure adds r unless its logical id is taken, and returns the resource stored
// under that id. Shared resources such as the deployment bucket go through here.
func (t *Template) Ensure(r Resource) Resource {
	if existing, exists := t.index[r.LogicalID()]; exists {
		return existing
	}
	t.index[r.LogicalID()] = r
	t.resources = append(t.resources, r)
	return r
}

// Get looks a resource up by logical id
func (t *Template) Get(id string) (Resource, bool) {
	r, ok := t.index[id]
	return r, ok
}

// Resources returns the resources in insertion order
func (t *Template) Resources() []Resource {
	return t.resources
}

// Len returns the number of resources
func (t *Template) Len() int {
	return len(t.resources)
}

// AddOutput adds an output unless one with the same id exists
func (t *Template) AddOutput(o Output) {
	for _, existing := range t.outputs {
		if existing.ID == o.ID {
			return
		}
	}
	t.outputs = append(t.outputs, o)
}

// Outputs returns the outputs in insertion order
func (t *Template) Outputs() []Output {
	return t.outputs
}

// MarshalJSON renders the template document
func (t *Template) MarshalJSON() ([]byte, error) {
	resources := make(map[string]interface{}, len(t.resources))
	for _, r := range t.resources {
		entry := map[string]interface{}{"Type": r.ResourceType()}
		if props := r.Properties(); len(props) > 0 {
			entry["Properties"] = props
		}
		if deps := r.DependsOn(); len(deps) > 0 {
			entry["DependsOn"] = deps
		}
		resources[r.LogicalID()] = entry
	}

	doc := map[string]interface{}{
		"AWSTemplateFormatVersion": formatVersion,
		"Resources":                resources,
	}
	if t.Description != "" {
		doc["Description"] = t.Description
	}

	if len(t.outputs) > 0 {
		outputs := make(map[string]interface{}, len(t.outputs))
		for _, o := range t.outputs {
			entry := map[string]interface{}{"Value": o.Value}
			if o.Description != "" {
				entry["Description"] = o.Description
			}
			if o.ExportName != "" {
				entry["Export"] = map[string]interface{}{"Name": o.ExportName}
			}
			outputs[o.ID] = entry
		}
		doc["Outputs"] = outputs
	}

	return json.Marshal(doc)
}

// Files is the create/update template pair of one stage. The create template only holds
// the deployment bucket so artifacts can be uploaded before the update stack runs.
type Files struct {
	Project string
	Stage   string
	Create  *Template
	Update  *Template

	// cached per stage, created by the first HTTP trigger
	RestAPI    *RestAPI
	Deployment *APIGatewayDeployment
}

// NewFiles creates the empty template pair for a stage
func NewFiles(project, stage string) *Files {
	return &Files{
		Project: project,
		Stage:   stage,
		Create:  NewTemplate(fmt.Sprintf("Nimbus create stack for %s (%s)", project, stage)),
		Update:  NewTemplate(fmt.Sprintf("Nimbus update stack for %s (%s)", project, stage)),
	}
}

// CreateFileName returns the file name of a stage's create template
func CreateFileName(stage string) string {
	return "cloudformation-stack-create-" + stage + ".json"
}

// UpdateFileName returns the file name of a stage's update template
func UpdateFileName(stage string) string {
	return "cloudformation-stack-update-" + stage + ".json"
}

// Write writes both templates into dir and returns their paths
func (f *Files) Write(dir string) ([]string, error) {
	written := make([]string, 0, 2)
	for _, file := range []struct {
		name     string
		template *Template
	}{
		{CreateFileName(f.Stage), f.Create},
		{UpdateFileName(f.Stage), f.Update},
	} {
		name := file.name
		data, err := json.MarshalIndent(file.template, "", "  ")
		if err != nil {
			return written, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
