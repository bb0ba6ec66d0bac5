// Package template provides placeholder interpolation for action parameters.
//
// Templates are plain strings containing {{path.to.field}} placeholders.
// Interpolation is pure path lookup: no functions, no expressions, no code
// execution. A placeholder whose path resolves to nothing is left verbatim.
package template

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Lookup extracts the value at a dotted path from nested maps. Missing
// intermediate keys yield (nil, false), never a panic.
func Lookup(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = data

	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// Interpolate replaces every {{path}} occurrence with the stringified value
// at that path in context. Unresolved placeholders (missing path or nil
// value) are kept unchanged so misconfigured templates stay visible.
func Interpolate(template string, context map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := strings.TrimSpace(placeholderPattern.FindStringSubmatch(match)[1])

		value, ok := Lookup(context, path)
		if !ok || value == nil {
			return match
		}

		return stringify(value)
	})
}

// InterpolateParams walks an action's parameter tree and interpolates every
// string leaf. Non-string values pass through unchanged.
func InterpolateParams(params map[string]any, context map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	result := make(map[string]any, len(params))
	for key, value := range params {
		result[key] = interpolateValue(value, context)
	}

	return result
}

func interpolateValue(value any, context map[string]any) any {
	switch v := value.(type) {
	case string:
		return Interpolate(v, context)
	case map[string]any:
		return InterpolateParams(v, context)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = interpolateValue(item, context)
		}

		return items
	default:
		return value
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(encoded)
	}
}
