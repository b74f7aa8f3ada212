package annotations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Prefix every marker comment starts with, after the comment slashes.
const Prefix = "nimbus::"

// ParserEngine parses and validates nimbus marker comments
type ParserEngine interface {
	ParseAnnotation(comment string, location SourceLocation) (*ParsedAnnotation, error)
	ValidateAnnotation(annotation *ParsedAnnotation) error
}

// markerLexer splits a marker comment into tokens. Words cover identifiers, paths,
// numbers and type references; anything with spaces or '=' must be quoted.
var markerLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Prefix", Pattern: `//\s*nimbus::`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Single", Pattern: `'[^']*'`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Equals", Pattern: `=`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Word", Pattern: `[^\s,="'-][^\s,="']*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type markerLine struct {
	Type   string         `parser:"Prefix @Word"`
	Tokens []*markerToken `parser:"@@*"`
}

type markerToken struct {
	Pos        lexer.Position
	Option     *markerOption `parser:"  @@"`
	Positional *markerValue  `parser:"| @@"`
}

type markerOption struct {
	Name  string       `parser:"Dash @Word"`
	Value *markerValue `parser:"( Equals @@ )?"`
}

type markerValue struct {
	Items []string `parser:"@(String | Single | Word) ( Comma @(String | Single | Word) )*"`
}

var markerGrammar = participle.MustBuild[markerLine](
	participle.Lexer(markerLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

type parser struct {
	registry AnnotationRegistry
}

// NewParser creates a parser bound to a schema registry
func NewParser(registry AnnotationRegistry) ParserEngine {
	return &parser{registry: registry}
}

// IsMarker reports whether a comment line is a nimbus marker
func IsMarker(comment string) bool {
	input := strings.TrimSpace(comment)
	if !strings.HasPrefix(input, "//") {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(input[2:]), Prefix)
}

// ParseAnnotation tokenizes a marker comment, maps positional and named values onto
// the schema's parameters and validates the result.
func (p *parser) ParseAnnotation(comment string, location SourceLocation) (*ParsedAnnotation, error) {
	input := strings.TrimSpace(comment)
	if !IsMarker(input) {
		return nil, syntaxError(location, "Use format: //nimbus::type [values] [-param=value]",
			"marker must start with '//nimbus::'")
	}

	line, err := markerGrammar.ParseString(location.File, input)
	if err != nil {
		return nil, p.syntaxError(err, location)
	}

	annotationType, err := ParseAnnotationType(line.Type)
	if err != nil {
		return nil, syntaxError(location, typeSuggestion(line.Type), "%v", err)
	}

	schema, err := p.registry.Schema(annotationType)
	if err != nil {
		return nil, &MarkerError{Kind: SchemaErrorCode, Msg: err.Error(), Loc: location,
			Hint: "Register the builtin schemas before parsing"}
	}

	annotation := &ParsedAnnotation{
		Type:       annotationType,
		Parameters: make(map[string]interface{}),
		Location:   location,
		Raw:        input,
	}

	positional := 0
	for _, token := range line.Tokens {
		loc := location
		loc.Column = location.Column + token.Pos.Column - 1

		if token.Option != nil {
			if err := p.applyOption(annotation, schema, token.Option, loc); err != nil {
				return nil, err
			}
			continue
		}

		if positional >= len(schema.Positional) {
			return nil, syntaxError(loc, positionalHint(schema),
				"unexpected value '%s'", strings.Join(token.Positional.Items, ","))
		}
		name := schema.Positional[positional]
		positional++
		if err := setParameter(annotation, name, token.Positional.value(), loc); err != nil {
			return nil, err
		}
	}

	if err := p.ValidateAnnotation(annotation); err != nil {
		return nil, err
	}

	return annotation, nil
}

func (p *parser) applyOption(annotation *ParsedAnnotation, schema AnnotationSchema, option *markerOption, loc SourceLocation) error {
	if option.Value != nil {
		return setParameter(annotation, option.Name, option.Value.value(), loc)
	}

	// A bare flag turns a bool on, or selects the schema default for anything else.
	if spec, exists := schema.Parameters[option.Name]; exists && spec.Type != BoolType && spec.DefaultValue != nil {
		return setParameter(annotation, option.Name, spec.DefaultValue, loc)
	}
	return setParameter(annotation, option.Name, true, loc)
}

func setParameter(annotation *ParsedAnnotation, name string, value interface{}, loc SourceLocation) error {
	if _, exists := annotation.Parameters[name]; exists {
		return syntaxError(loc, "Give each parameter once, either positionally or as -name=value",
			"parameter '%s' given more than once", name)
	}
	annotation.Parameters[name] = value
	return nil
}

// value returns a single string, or a []string for comma separated lists
func (v *markerValue) value() interface{} {
	items := make([]string, len(v.Items))
	for i, item := range v.Items {
		items[i] = strings.Trim(item, "'")
	}
	if len(items) == 1 {
		return items[0]
	}
	return items
}

func (p *parser) syntaxError(err error, location SourceLocation) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		loc := location
		loc.Column = location.Column + perr.Position().Column - 1
		return syntaxError(loc, "Parameters should be in format '-name=value' or '-flag'; quote values containing spaces",
			"%s", perr.Message())
	}
	return syntaxError(location, "Check the marker syntax", "%v", err)
}

func positionalHint(schema AnnotationSchema) string {
	if len(schema.Positional) == 0 {
		return fmt.Sprintf("nimbus::%s takes no positional values, use -name=value", schema.Type)
	}
	return fmt.Sprintf("nimbus::%s takes positional values: %s", schema.Type, strings.Join(schema.Positional, " "))
}

// ValidateAnnotation applies defaults, converts types and validates a parsed marker
func (p *parser) ValidateAnnotation(annotation *ParsedAnnotation) error {
	schema, err := p.registry.Schema(annotation.Type)
	if err != nil {
		return &MarkerError{Kind: SchemaErrorCode, Msg: err.Error(), Loc: annotation.Location,
			Hint: "Check if annotation type is registered"}
	}
	return applySchema(annotation, schema)
}
