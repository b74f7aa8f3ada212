package annotations

import (
	"maps"
	"slices"
)

// applySchema fills defaults, converts every parameter to its declared type and
// validates the result. Cross-parameter validators only run once each parameter
// is well formed.
func applySchema(annotation *ParsedAnnotation, schema AnnotationSchema) error {
	if annotation.Parameters == nil {
		annotation.Parameters = make(map[string]interface{})
	}
	loc := annotation.Location
	var errs MarkerErrors

	for _, name := range sortedNames(schema.Parameters) {
		spec := schema.Parameters[name]
		raw, present := annotation.Parameters[name]
		if !present {
			if spec.DefaultValue != nil {
				annotation.Parameters[name] = cloneDefault(spec.DefaultValue)
			} else if spec.Required {
				errs = append(errs, parameterError(loc, name, "Add -"+name+"=<value> to the marker",
					"required %s parameter is missing", spec.Type))
			}
			continue
		}

		value, err := spec.Type.Convert(raw)
		if err != nil {
			errs = append(errs, parameterError(loc, name, "",
				"expected a value convertible to %s, got %v", spec.Type, raw))
			continue
		}
		annotation.Parameters[name] = value

		if spec.Validator != nil {
			if err := spec.Validator(value); err != nil {
				errs = append(errs, parameterError(loc, name, "", "%v", err))
			}
		}
	}

	for _, name := range sortedNames(annotation.Parameters) {
		if _, known := schema.Parameters[name]; !known {
			errs = append(errs, parameterError(loc, name, parameterHint(name, schema), "unknown parameter"))
		}
	}

	if len(errs) == 0 {
		for _, validate := range schema.Validators {
			if err := validate(annotation); err != nil {
				errs = append(errs, &MarkerError{Kind: SchemaErrorCode, Msg: err.Error(), Loc: loc})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// cloneDefault keeps markers from sharing a schema's default slice
func cloneDefault(value interface{}) interface{} {
	if items, ok := value.([]string); ok {
		return slices.Clone(items)
	}
	return value
}

func sortedNames[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
