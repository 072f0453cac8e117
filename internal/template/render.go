// Package template implements the small placeholder language used by
// notification templates: {{name}} / {name} substitution with dot and
// underscore addressing of nested values, and non-nesting
// {% if ... %}...{% endif %} conditional blocks.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// condPattern matches one conditional block with an optional comparison
// against a literal. Blocks do not nest.
var condPattern = regexp.MustCompile(`(?s)\{%\s*if\s+([A-Za-z0-9_.]+)\s*(?:(>=|>|==)\s*([^%\s]+)\s*)?%\}(.*?)\{%\s*endif\s*%\}`)

// placeholderPattern matches one substitution token: a double-brace
// placeholder (unknown names are blanked) or a single-brace one (unknown
// names stay literal, bare braces are common in prose).
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}|\{([A-Za-z0-9_.]+)\}`)

// Render substitutes variables into tmpl. It is a pure function: identical
// inputs always produce identical output. Substitution is a single pass
// over the template, so placeholder syntax inside a variable's value is
// never re-interpreted.
func Render(tmpl string, vars map[string]interface{}) string {
	flat := flatten(vars)

	out := condPattern.ReplaceAllStringFunc(tmpl, func(block string) string {
		m := condPattern.FindStringSubmatch(block)
		name, op, literal, body := m[1], m[2], m[3], m[4]
		value, ok := flat[name]
		if op == "" {
			if ok && truthy(value) {
				return body
			}
			return ""
		}
		if ok && compare(value, op, literal) {
			return body
		}
		return ""
	})

	return placeholderPattern.ReplaceAllStringFunc(out, func(token string) string {
		m := placeholderPattern.FindStringSubmatch(token)
		if m[1] != "" {
			if value, ok := flat[m[1]]; ok {
				return stringify(value)
			}
			return ""
		}
		if value, ok := flat[m[2]]; ok {
			return stringify(value)
		}
		return token
	})
}

// flatten lowers the nested variable bag into a single-level map addressable
// both ways: {a: {b: v}} yields keys "a.b" and "a_b" for the same value.
func flatten(vars map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{}, len(vars))
	var walk func(dotPrefix, underPrefix string, m map[string]interface{})
	walk = func(dotPrefix, underPrefix string, m map[string]interface{}) {
		for k, v := range m {
			dotKey, underKey := k, k
			if dotPrefix != "" {
				dotKey = dotPrefix + "." + k
				underKey = underPrefix + "_" + k
			}
			if nested, isMap := v.(map[string]interface{}); isMap {
				walk(dotKey, underKey, nested)
				continue
			}
			flat[dotKey] = v
			if underKey != dotKey {
				flat[underKey] = v
			}
		}
	}
	walk("", "", vars)
	return flat
}

// truthy reports whether a bare conditional keeps its body:
// non-nil, non-false, non-empty-string.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		return true
	}
}

// compare evaluates `value op literal`. Non-numeric operands for the
// ordering operators resolve to false rather than erroring.
func compare(value interface{}, op, literal string) bool {
	switch op {
	case ">=", ">":
		left, lok := toFloat(value)
		right, rerr := strconv.ParseFloat(literal, 64)
		if !lok || rerr != nil {
			return false
		}
		if op == ">=" {
			return left >= right
		}
		return left > right
	case "==":
		return stringify(value) == strings.Trim(literal, `"'`)
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// stringify renders a value for substitution; nil becomes the empty string,
// never a literal "nil" or "None".
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
