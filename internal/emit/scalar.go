package emit

import (
	"encoding/json"
	"strconv"
	"strings"

	"urd/internal/ast"
)

// scalarToJSON lowers a frontmatter Scalar to a JSON value, preserving
// its author-declared shape (string/int/number/bool/list/entity ref).
func scalarToJSON(s *ast.Scalar) any {
	if s == nil {
		return nil
	}
	switch s.Kind {
	case ast.ScalarString:
		return s.Str
	case ast.ScalarInteger:
		return s.Int
	case ast.ScalarNumber:
		return numberJSON(s.Num)
	case ast.ScalarBoolean:
		return s.Bool
	case ast.ScalarList:
		out := make([]any, len(s.List))
		for i := range s.List {
			out[i] = scalarToJSON(&s.List[i])
		}
		return out
	case ast.ScalarEntityRef:
		return s.EntRef
	default:
		return nil
	}
}

// numberJSON emits a whole-valued float as a JSON integer literal, and a
// fractional one as a float literal — json.Number lets us control this
// without encoding/json re-formatting an int as "5.0".
func numberJSON(n float64) json.Number {
	if n == float64(int64(n)) {
		return json.Number(strconv.FormatInt(int64(n), 10))
	}
	return json.Number(strconv.FormatFloat(n, 'g', -1, 64))
}

func stripAt(s string) string {
	return strings.TrimPrefix(s, "@")
}

func formatPropertyType(pt ast.PropertyType) string {
	switch pt {
	case ast.TypeBoolean:
		return "boolean"
	case ast.TypeInteger:
		return "integer"
	case ast.TypeNumber:
		return "number"
	case ast.TypeString:
		return "string"
	case ast.TypeEnum:
		return "enum"
	case ast.TypeRef:
		return "ref"
	case ast.TypeList:
		return "list"
	default:
		return "string"
	}
}
