package models

// GeneratedFile represents a rendered handler registration file
type GeneratedFile struct {
	PackageName string
	FilePath    string
	Content     string
	Functions   []string // registration names, in output order
}
