package generator

import "github.com/nimbusframework/nimbus-go/internal/models"

// CodeGenerator renders the handler registration file of a package
type CodeGenerator interface {
	GenerateHandlers(metadata *models.PackageMetadata) (*models.GeneratedFile, error)
}
