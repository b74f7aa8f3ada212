package deployment

import (
	"strings"

	"github.com/nimbusframework/nimbus-go/internal/annotations"
	"github.com/nimbusframework/nimbus-go/internal/cloudformation"
	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
	"github.com/nimbusframework/nimbus-go/internal/models"
	"github.com/nimbusframework/nimbus-go/pkg/nimbus"
)

// storeKind separates document stores from key-value stores declared on the same type
type storeKind int

const (
	documentStore storeKind = iota
	keyValueStore
)

func (k storeKind) String() string {
	if k == keyValueStore {
		return "key-value store"
	}
	return "document store"
}

// storeTable is the resolved table of a data model in one stage
type storeTable struct {
	Name string
	// Table is nil for key-value stores bound to an existing table
	Table       *cloudformation.Table
	ExistingArn string
}

// ResolveDefinition picks the definition marker of a data model that applies to a stage.
// A definition listing the stage wins over one without stages.
func ResolveDefinition(model string, definitions []models.Annotation, stage string) (models.Annotation, error) {
	var fallback *models.Annotation
	for i, def := range definitions {
		stages := def.Stages()
		if len(stages) == 0 {
			if fallback == nil {
				fallback = &definitions[i]
			}
			continue
		}
		for _, s := range stages {
			if s == stage {
				return def, nil
			}
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return models.Annotation{}, nimbuserrors.InvalidStageError(model, stage)
}

// ResolveTableName returns the table name of a data model in a stage:
// the definition's tableName, or the type name, followed by the stage.
func ResolveTableName(model string, definitions []models.Annotation, stage string) (string, error) {
	def, err := ResolveDefinition(model, definitions, stage)
	if err != nil {
		return "", err
	}
	prefix := def.GetString("tableName")
	if prefix == "" {
		prefix = model
	}
	return nimbus.TableName(prefix, stage), nil
}

// stores resolves and creates the tables of data models, one per model and stage
type stores struct {
	env    *Environment
	models map[string]models.DataModelMetadata
	tables map[storeKind]map[string]map[string]*storeTable // kind, model, stage
}

func newStores(env *Environment) *stores {
	return &stores{
		env:    env,
		models: make(map[string]models.DataModelMetadata),
		tables: map[storeKind]map[string]map[string]*storeTable{
			documentStore: {},
			keyValueStore: {},
		},
	}
}

// add registers a data model, reporting a type name already declared in another package.
// A type is either a document store or a key-value store: both kinds share the
// table name and the table name variable of the type.
func (s *stores) add(model models.DataModelMetadata) error {
	loc := nimbuserrors.SourceLocation{File: model.FileName, Line: model.Line}
	if existing, ok := s.models[model.TypeName]; ok {
		return nimbuserrors.Newf(nimbuserrors.DeploymentErrorCode,
			"data model %s is declared in both %s and %s", model.TypeName, existing.FileName, model.FileName).
			WithLocation(loc)
	}
	if len(model.DocumentStores) > 0 && len(model.KeyValueStores) > 0 {
		return nimbuserrors.Newf(nimbuserrors.DeploymentErrorCode,
			"data model %s is declared as both a document store and a key-value store", model.TypeName).
			WithLocation(loc).
			WithSuggestion("Declare the key-value store on a separate type")
	}
	s.models[model.TypeName] = model
	return nil
}

// definitions returns the markers of one store kind
func (s *stores) definitions(kind storeKind, model string) ([]models.Annotation, bool) {
	m, ok := s.models[model]
	if !ok {
		return nil, false
	}
	defs := m.DocumentStores
	if kind == keyValueStore {
		defs = m.KeyValueStores
	}
	return defs, len(defs) > 0
}

// table returns the table of a model in a stage, adding it to the stage's update template on first use
func (s *stores) table(kind storeKind, model, stage string) (*storeTable, error) {
	if t, ok := s.tables[kind][model][stage]; ok {
		return t, nil
	}

	defs, ok := s.definitions(kind, model)
	if !ok {
		return nil, nimbuserrors.Newf(nimbuserrors.DeploymentErrorCode, "%s is not a %s", model, kind).
			WithSuggestion(markerFor(kind) + " must be declared on type " + model)
	}

	def, err := ResolveDefinition(model, defs, stage)
	if err != nil {
		return nil, err
	}
	name, err := ResolveTableName(model, defs, stage)
	if err != nil {
		return nil, err
	}

	resolved := &storeTable{Name: name}
	if arn := def.GetString("existingArn"); kind == keyValueStore && arn != "" {
		resolved.ExistingArn = arn
		resolved.Name = tableNameFromArn(arn)
	} else {
		keyName, keyType := def.GetString("key", "id"), "S"
		if kind == keyValueStore {
			keyName = def.GetString("keyName", "PrimaryKey")
			if def.GetString("keyType") == "number" {
				keyType = "N"
			}
		}
		resolved.Table = cloudformation.NewTable(name, keyName, keyType)
		if err := s.env.Files(stage).Update.AddResource(resolved.Table); err != nil {
			return nil, nimbuserrors.Newf(nimbuserrors.DeploymentErrorCode,
				"table %s of %s is already used by another data model in stage %s", name, model, stage).
				WithSuggestion("Give one of the data models a different tableName")
		}
	}

	if s.tables[kind][model] == nil {
		s.tables[kind][model] = make(map[string]*storeTable)
	}
	s.tables[kind][model][stage] = resolved
	return resolved, nil
}

// createDeclared creates the tables of every stage a model's definitions name,
// using the default stages for definitions without stages
func (s *stores) createDeclared(model models.DataModelMetadata, defaultStages []string) error {
	errs := nimbuserrors.NewMultipleErrors()
	for _, kind := range []storeKind{documentStore, keyValueStore} {
		defs, _ := s.definitions(kind, model.TypeName)
		for _, stage := range declaredStages(defs, defaultStages) {
			if _, err := s.table(kind, model.TypeName, stage); err != nil {
				if ne, ok := err.(nimbuserrors.NimbusError); ok {
					errs.Add(ne)
				}
			}
		}
	}
	return errs.ErrorOrNil()
}

func declaredStages(defs []models.Annotation, defaultStages []string) []string {
	var stages []string
	seen := make(map[string]bool)
	for _, def := range defs {
		list := def.Stages()
		if len(list) == 0 {
			list = defaultStages
		}
		for _, stage := range list {
			if !seen[stage] {
				seen[stage] = true
				stages = append(stages, stage)
			}
		}
	}
	return stages
}

func tableNameFromArn(arn string) string {
	if i := strings.LastIndex(arn, ":table/"); i >= 0 {
		return strings.SplitN(arn[i+len(":table/"):], "/", 2)[0]
	}
	return arn
}

func markerFor(kind storeKind) string {
	if kind == keyValueStore {
		return "//nimbus::" + annotations.KeyValueStoreDefinitionAnnotation.String()
	}
	return "//nimbus::" + annotations.DocumentStoreDefinitionAnnotation.String()
}
