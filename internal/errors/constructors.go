package errors

// Shorthands for the errors the generator raises most. Each one records the
// subject of the failure as context so the reporter can print it.

func WrapFileSystemError(operation, path string, cause error) *BaseError {
	return Wrapf(FileSystemErrorCode, cause, "cannot %s %s", operation, path).
		WithContext("operation", operation).
		WithContext("path", path)
}

func WrapTemplateError(name, operation string, cause error) *BaseError {
	return Wrapf(TemplateErrorCode, cause, "cannot %s template %s", operation, name).
		WithContext("template", name)
}

// WrapGenerateError is for a generated file that failed post-processing
func WrapGenerateError(path string, cause error) *BaseError {
	return Wrapf(GenerationErrorCode, cause, "cannot generate %s", path).
		WithContext("path", path)
}

func WrapConfigurationError(source, operation string, cause error) *BaseError {
	return Wrapf(ConfigurationErrorCode, cause, "cannot %s %s", operation, source).
		WithContext("config", source)
}

// ConfigurationError reports an invalid setting; field is the setting's name
func ConfigurationError(field, message string) *BaseError {
	return Newf(ConfigurationErrorCode, "invalid %s: %s", field, message).
		WithContext("config", field)
}

// DeploymentError reports a marker that cannot be turned into cloud resources
func DeploymentError(function, message string) *BaseError {
	return Newf(DeploymentErrorCode, "%s: %s", function, message).
		WithContext("function", function)
}

// InvalidStageError reports a data model with no resource definition covering a stage
func InvalidStageError(model, stage string) *BaseError {
	return Newf(InvalidStageErrorCode, "%s has no definition for stage '%s'", model, stage).
		WithContext("model", model).
		WithContext("stage", stage).
		WithSuggestion("Add the stage to a definition marker, or add a definition without -stages")
}

// DependencyError reports a uses_* marker whose target cannot be satisfied.
// kind names the resource, e.g. "basic function".
func DependencyError(kind, target, message string) *BaseError {
	return Newf(DependencyErrorCode, "uses %s %s: %s", kind, target, message).
		WithContext("dependency", target)
}
