package models

import "github.com/nimbusframework/nimbus-go/internal/annotations"

// PackageMetadata represents all markers found in a package
type PackageMetadata struct {
	PackageName string
	PackagePath string // file system path to the package
	ImportPath  string // Go import path, filled in once the module is resolved
	Functions   []FunctionMetadata
	DataModels  []DataModelMetadata
}

// FunctionMetadata describes a function or method carrying trigger or permission markers
type FunctionMetadata struct {
	Receiver string // empty for plain functions
	Method   string
	// Constructor is a zero-argument New<Receiver> function when the package declares one.
	Constructor string
	Kind        TriggerKind
	Triggers    []Annotation
	Uses        []Annotation
	FileName    string
	Line        int
}

// Name returns the registration name, Receiver.Method or Func
func (f FunctionMetadata) Name() string {
	if f.Receiver == "" {
		return f.Method
	}
	return f.Receiver + "." + f.Method
}

// HasTriggers reports whether the function is deployed as a serverless function
func (f FunctionMetadata) HasTriggers() bool {
	return len(f.Triggers) > 0
}

// TriggersOfType returns the trigger markers of one marker type, in source order
func (f FunctionMetadata) TriggersOfType(t annotations.AnnotationType) []Annotation {
	var result []Annotation
	for _, trigger := range f.Triggers {
		if trigger.Type == t {
			result = append(result, trigger)
		}
	}
	return result
}

// DataModelMetadata describes a type carrying store definition markers
type DataModelMetadata struct {
	TypeName       string
	DocumentStores []Annotation
	KeyValueStores []Annotation
	FileName       string
	Line           int
}

// FindFunction looks a function up by registration name
func (p *PackageMetadata) FindFunction(name string) (*FunctionMetadata, bool) {
	for i := range p.Functions {
		if p.Functions[i].Name() == name {
			return &p.Functions[i], true
		}
	}
	return nil, false
}

// FindDataModel looks a data model up by type name
func (p *PackageMetadata) FindDataModel(typeName string) (*DataModelMetadata, bool) {
	for i := range p.DataModels {
		if p.DataModels[i].TypeName == typeName {
			return &p.DataModels[i], true
		}
	}
	return nil, false
}

// HasTriggers reports whether any function in the package is deployed
func (p *PackageMetadata) HasTriggers() bool {
	for _, fn := range p.Functions {
		if fn.HasTriggers() {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the package carries no markers at all
func (p *PackageMetadata) IsEmpty() bool {
	return len(p.Functions) == 0 && len(p.DataModels) == 0
}
