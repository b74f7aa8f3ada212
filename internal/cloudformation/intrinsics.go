package cloudformation

import (
	"strings"
	"unicode"
)

// Intrinsic is a CloudFormation intrinsic function call such as {"Ref": "X"}
type Intrinsic map[string]interface{}

// Ref references a resource's primary value
func Ref(logicalID string) Intrinsic {
	return Intrinsic{"Ref": logicalID}
}

// GetAtt references an attribute of a resource
func GetAtt(logicalID, attribute string) Intrinsic {
	return Intrinsic{"Fn::GetAtt": []string{logicalID, attribute}}
}

// Sub substitutes ${...} variables in a string
func Sub(format string) Intrinsic {
	return Intrinsic{"Fn::Sub": format}
}

// Join concatenates values with a delimiter
func Join(delimiter string, values ...interface{}) Intrinsic {
	return Intrinsic{"Fn::Join": []interface{}{delimiter, values}}
}

// withSuffix appends a literal suffix to a value, which may be an intrinsic
func withSuffix(value interface{}, suffix string) interface{} {
	if suffix == "" {
		return value
	}
	if s, ok := value.(string); ok {
		return s + suffix
	}
	return Join("", value, suffix)
}

// LogicalID builds an alphanumeric logical id, capitalising the first letter of each part
func LogicalID(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		upper := true
		for _, r := range part {
			if r >= unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
				upper = true
				continue
			}
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
