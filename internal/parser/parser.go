package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"sort"
	"strings"

	"github.com/nimbusframework/nimbus-go/internal/annotations"
	nimbuserrors "github.com/nimbusframework/nimbus-go/internal/errors"
	"github.com/nimbusframework/nimbus-go/internal/models"
)

// Parser scans Go packages for nimbus markers
type Parser struct {
	fileSet  *token.FileSet
	engine   annotations.ParserEngine
	reporter *ErrorReporter
}

// NewParser creates a parser backed by the builtin marker schemas
func NewParser() *Parser {
	registry, err := annotations.DefaultRegistry()
	if err != nil {
		panic(fmt.Sprintf("builtin marker schemas are invalid: %v", err))
	}
	return NewParserWithRegistry(registry)
}

// NewParserWithRegistry creates a parser validating markers against the given registry
func NewParserWithRegistry(registry annotations.AnnotationRegistry) *Parser {
	return &Parser{
		fileSet:  token.NewFileSet(),
		engine:   annotations.NewParser(registry),
		reporter: NewErrorReporter(),
	}
}

// packageScan accumulates declarations across the files of one package
type packageScan struct {
	metadata     *models.PackageMetadata
	constructors map[string]string
	structTypes  map[string]bool
	errs         *nimbuserrors.MultipleErrors
}

// ParseSource parses a single source file, mainly for tests
func (p *Parser) ParseSource(filename, source string) (*models.PackageMetadata, error) {
	file, err := parser.ParseFile(p.fileSet, filename, source, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}

	scan := newPackageScan(file.Name.Name, "./")
	p.scanFile(file, filename, scan)
	return p.finish(scan)
}

// ParseDirectory parses the production Go files of one package directory
func (p *Parser) ParseDirectory(path string) (*models.PackageMetadata, error) {
	pkgs, err := parser.ParseDir(p.fileSet, path, isSourceFile, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse directory %s: %w", path, err)
	}

	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no Go packages found in directory %s", path)
	}
	if len(pkgs) > 1 {
		names := make([]string, 0, len(pkgs))
		for name := range pkgs {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("multiple packages found in directory %s: %s", path, strings.Join(names, ", "))
	}

	for name, pkg := range pkgs {
		scan := newPackageScan(name, path)

		fileNames := make([]string, 0, len(pkg.Files))
		for fileName := range pkg.Files {
			fileNames = append(fileNames, fileName)
		}
		sort.Strings(fileNames)

		for _, fileName := range fileNames {
			p.scanFile(pkg.Files[fileName], fileName, scan)
		}
		return p.finish(scan)
	}
	return nil, nil
}

func isSourceFile(info fs.FileInfo) bool {
	name := info.Name()
	return !strings.HasSuffix(name, "_test.go") && name != GeneratedFileName
}

func newPackageScan(name, path string) *packageScan {
	return &packageScan{
		metadata: &models.PackageMetadata{
			PackageName: name,
			PackagePath: path,
		},
		constructors: make(map[string]string),
		structTypes:  make(map[string]bool),
		errs:         nimbuserrors.NewMultipleErrors(),
	}
}

// scanFile collects marked declarations, struct types and constructors from one file
func (p *Parser) scanFile(file *ast.File, fileName string, scan *packageScan) {
	for _, decl := range file.Decls {
		switch node := decl.(type) {
		case *ast.GenDecl:
			if node.Tok != token.TYPE {
				continue
			}
			for _, spec := range node.Specs {
				typeSpec := spec.(*ast.TypeSpec)
				if _, ok := typeSpec.Type.(*ast.StructType); ok {
					scan.structTypes[typeSpec.Name.Name] = true
				}
				doc := typeSpec.Doc
				if doc == nil && len(node.Specs) == 1 {
					doc = node.Doc
				}
				p.scanType(typeSpec, doc, fileName, scan)
			}
		case *ast.FuncDecl:
			if isConstructor(node) {
				scan.constructors[constructedType(node)] = node.Name.Name
			}
			p.scanFunc(node, fileName, scan)
		}
	}
}

func (p *Parser) scanType(typeSpec *ast.TypeSpec, doc *ast.CommentGroup, fileName string, scan *packageScan) {
	markers := p.extractMarkers(doc, typeSpec.Name.Name, scan)
	if len(markers) == 0 {
		return
	}

	model := models.DataModelMetadata{
		TypeName: typeSpec.Name.Name,
		FileName: fileName,
		Line:     p.fileSet.Position(typeSpec.Pos()).Line,
	}
	for _, marker := range markers {
		switch marker.Type {
		case annotations.DocumentStoreDefinitionAnnotation:
			model.DocumentStores = append(model.DocumentStores, marker)
		case annotations.KeyValueStoreDefinitionAnnotation:
			model.KeyValueStores = append(model.KeyValueStores, marker)
		default:
			scan.errs.Add(p.reporter.ReportPlacementError(marker.ParsedAnnotation, typeSpec.Name.Name, "type"))
		}
	}

	if len(model.DocumentStores) > 0 || len(model.KeyValueStores) > 0 {
		scan.metadata.DataModels = append(scan.metadata.DataModels, model)
	}
}

func (p *Parser) scanFunc(node *ast.FuncDecl, fileName string, scan *packageScan) {
	receiver := receiverName(node)
	fn := models.FunctionMetadata{
		Receiver: receiver,
		Method:   node.Name.Name,
		FileName: fileName,
		Line:     p.fileSet.Position(node.Pos()).Line,
	}

	markers := p.extractMarkers(node.Doc, fn.Name(), scan)
	if len(markers) == 0 {
		return
	}

	for _, marker := range markers {
		switch marker.Type.Category() {
		case annotations.TriggerCategory:
			kind := models.TriggerKindOf(marker.Type)
			if fn.Kind != models.NoTrigger && fn.Kind != kind {
				scan.errs.Add(p.reporter.ReportMixedTriggers(fn, fn.Kind, kind))
				return
			}
			fn.Kind = kind
			fn.Triggers = append(fn.Triggers, marker)
		case annotations.PermissionCategory:
			fn.Uses = append(fn.Uses, marker)
		default:
			scan.errs.Add(p.reporter.ReportPlacementError(marker.ParsedAnnotation, fn.Name(), "function"))
		}
	}

	if !fn.HasTriggers() {
		if len(fn.Uses) > 0 {
			scan.errs.Add(p.reporter.ReportUsesWithoutTrigger(fn))
		}
		return
	}

	params, results := countFields(node.Type.Params), countFields(node.Type.Results)
	if sig := handlerSignatures[fn.Kind]; params != sig.Params || results != sig.Results {
		scan.errs.Add(p.reporter.ReportSignatureError(fn, params, results))
		return
	}

	scan.metadata.Functions = append(scan.metadata.Functions, fn)
}

// extractMarkers parses every marker line of a doc comment. Invalid markers are
// recorded on the scan and skipped.
func (p *Parser) extractMarkers(doc *ast.CommentGroup, target string, scan *packageScan) []models.Annotation {
	if doc == nil {
		return nil
	}

	var markers []models.Annotation
	for _, comment := range doc.List {
		if !annotations.IsMarker(comment.Text) {
			continue
		}
		pos := p.fileSet.Position(comment.Slash)
		location := annotations.SourceLocation{File: pos.Filename, Line: pos.Line, Column: pos.Column}

		parsed, err := p.engine.ParseAnnotation(comment.Text, location)
		if err != nil {
			scan.errs.Add(p.reporter.ReportMarkerError(target, err))
			continue
		}
		parsed.Target = target
		markers = append(markers, models.Annotation{
			ParsedAnnotation: parsed,
			FileName:         pos.Filename,
			Line:             pos.Line,
		})
	}
	return markers
}

// finish resolves receiver construction once every file of the package has been seen
func (p *Parser) finish(scan *packageScan) (*models.PackageMetadata, error) {
	for i := range scan.metadata.Functions {
		fn := &scan.metadata.Functions[i]
		if fn.Receiver == "" {
			continue
		}
		if ctor, ok := scan.constructors[fn.Receiver]; ok {
			fn.Constructor = ctor
			continue
		}
		if !scan.structTypes[fn.Receiver] {
			scan.errs.Add(p.reporter.ReportConstructorError(*fn, "it is not a struct type and has no constructor"))
		}
	}

	if err := scan.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return scan.metadata, nil
}

// receiverName returns the receiver's type name, without pointer or type parameters
func receiverName(node *ast.FuncDecl) string {
	if node.Recv == nil || len(node.Recv.List) == 0 {
		return ""
	}
	expr := node.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name
		}
	case *ast.IndexListExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name
		}
	}
	return ""
}

// isConstructor matches func NewT() T or func NewT() *T
func isConstructor(node *ast.FuncDecl) bool {
	if node.Recv != nil || !strings.HasPrefix(node.Name.Name, ConstructorPrefix) {
		return false
	}
	if countFields(node.Type.Params) != 0 || countFields(node.Type.Results) != 1 {
		return false
	}
	return constructedType(node) == strings.TrimPrefix(node.Name.Name, ConstructorPrefix)
}

func constructedType(node *ast.FuncDecl) string {
	if node.Type.Results == nil || len(node.Type.Results.List) != 1 {
		return ""
	}
	expr := node.Type.Results.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

// countFields counts declared parameters or results, expanding grouped names like (a, b int)
func countFields(list *ast.FieldList) int {
	if list == nil {
		return 0
	}
	count := 0
	for _, field := range list.List {
		if len(field.Names) == 0 {
			count++
			continue
		}
		count += len(field.Names)
	}
	return count
}
