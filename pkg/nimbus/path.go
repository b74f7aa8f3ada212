package nimbus

import "strings"

// PathPartType represents the type of a path part
type PathPartType int

const (
	StaticPart PathPartType = iota
	ParameterPart
	// WildcardPart is a greedy {name+} parameter, as API Gateway proxy resources use
	WildcardPart
)

// PathPart is a single part of an HTTP trigger path
type PathPart struct {
	Type  PathPartType
	Value string // literal text for static parts, the parameter name otherwise
}

// Path is an HTTP trigger path such as /users/{id} or /files/{key+}
type Path string

// Parts splits the path into static text and parameters
func (p Path) Parts() []PathPart {
	path := string(p)
	var parts []PathPart

	i := 0
	for i < len(path) {
		if path[i] != '{' {
			start := i
			for i < len(path) && path[i] != '{' {
				i++
			}
			parts = append(parts, PathPart{Type: StaticPart, Value: path[start:i]})
			continue
		}

		end := strings.IndexByte(path[i:], '}')
		if end < 0 {
			// unterminated, keep the rest as literal text
			parts = append(parts, PathPart{Type: StaticPart, Value: path[i:]})
			break
		}

		name := path[i+1 : i+end]
		if strings.HasSuffix(name, "+") {
			parts = append(parts, PathPart{Type: WildcardPart, Value: strings.TrimSuffix(name, "+")})
		} else {
			parts = append(parts, PathPart{Type: ParameterPart, Value: name})
		}
		i += end + 1
	}

	return parts
}

// Segments returns the non-empty /-separated segments, as API Gateway resources are created
func (p Path) Segments() []string {
	var segments []string
	for _, segment := range strings.Split(string(p), "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// Format renders the path for a router that marks parameters with ":". Greedy
// parameters become "*", or "*name" when the router names its wildcards.
func (p Path) Format(namedWildcard bool) string {
	var b strings.Builder
	for _, part := range p.Parts() {
		switch part.Type {
		case ParameterPart:
			b.WriteString(":" + part.Value)
		case WildcardPart:
			b.WriteString("*")
			if namedWildcard {
				b.WriteString(part.Value)
			}
		default:
			b.WriteString(part.Value)
		}
	}
	return b.String()
}

// Wildcard returns the name of the greedy parameter, if the path has one
func (p Path) Wildcard() (string, bool) {
	for _, part := range p.Parts() {
		if part.Type == WildcardPart {
			return part.Value, true
		}
	}
	return "", false
}
