// Package conditions evaluates workflow condition lists against trigger
// payloads.
package conditions

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/fernandogarzaaa/appforge-sub001/pkg/models"
	"github.com/fernandogarzaaa/appforge-sub001/pkg/template"
)

// Evaluate applies every condition against the payload. Conditions are
// ANDed and evaluation short-circuits on the first false. An empty list
// evaluates to true.
//
// An unsupported operator returns a ConfigurationError: a misconfigured
// condition must not be indistinguishable from a legitimately-unmet one.
func Evaluate(conds []models.Condition, payload map[string]any) (bool, error) {
	for _, cond := range conds {
		ok, err := evaluateOne(cond, payload)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func evaluateOne(cond models.Condition, payload map[string]any) (bool, error) {
	value, found := template.Lookup(payload, cond.Field)

	switch cond.Operator {
	case models.OperatorEquals:
		return equalValues(value, cond.Value), nil
	case models.OperatorNotEquals:
		return !equalValues(value, cond.Value), nil
	case models.OperatorContains:
		return strings.Contains(coerceString(value), coerceString(cond.Value)), nil
	case models.OperatorGreaterThan:
		left, right, ok := numericOperands(value, cond.Value)
		// Non-numeric operands never satisfy an ordering comparison.
		return ok && left > right, nil
	case models.OperatorLessThan:
		left, right, ok := numericOperands(value, cond.Value)

		return ok && left < right, nil
	case models.OperatorExists:
		return found && value != nil, nil
	default:
		return false, models.NewConfigurationError(
			"conditions", fmt.Sprintf("unsupported operator %q", cond.Operator))
	}
}

// equalValues compares two values strictly. Numeric types of the same
// quantity are treated as equal (JSON decoding yields float64 for every
// number), but a numeric string never equals a number: "3" != 3.
func equalValues(a, b any) bool {
	if left, okA := numericValue(a); okA {
		if right, okB := numericValue(b); okB {
			return left == right
		}
	}

	return reflect.DeepEqual(a, b)
}

// numericOperands coerces both sides for an ordering comparison. Unlike
// equality, ordering accepts numeric strings.
func numericOperands(a, b any) (float64, float64, bool) {
	left, okA := toFloat(a)
	right, okB := toFloat(b)

	return left, right, okA && okB
}

func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func toFloat(value any) (float64, bool) {
	if f, ok := numericValue(value); ok {
		return f, true
	}

	if s, ok := value.(string); ok {
		f, err := strconv.ParseFloat(s, 64)

		return f, err == nil
	}

	return 0, false
}

func coerceString(value any) string {
	if value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
