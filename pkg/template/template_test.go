package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	data := map[string]any{
		"user": map[string]any{
			"email": "a@b.com",
			"address": map[string]any{
				"city": "Lisbon",
			},
		},
		"count": float64(3),
		"none":  nil,
	}

	testCases := []struct {
		name     string
		path     string
		expected any
		found    bool
	}{
		{
			name:     "top level key",
			path:     "count",
			expected: float64(3),
			found:    true,
		},
		{
			name:     "nested key",
			path:     "user.email",
			expected: "a@b.com",
			found:    true,
		},
		{
			name:     "deeply nested key",
			path:     "user.address.city",
			expected: "Lisbon",
			found:    true,
		},
		{
			name:  "missing key",
			path:  "user.phone",
			found: false,
		},
		{
			name:  "missing intermediate key",
			path:  "account.plan.name",
			found: false,
		},
		{
			name:  "traversal through scalar",
			path:  "count.value",
			found: false,
		},
		{
			name:  "empty path",
			path:  "",
			found: false,
		},
		{
			name:     "null value is found",
			path:     "none",
			expected: nil,
			found:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			value, found := Lookup(data, tc.path)
			assert.Equal(t, tc.found, found)
			assert.Equal(t, tc.expected, value)
		})
	}
}

func TestInterpolate(t *testing.T) {
	testCases := []struct {
		name     string
		template string
		context  map[string]any
		expected string
	}{
		{
			name:     "simple replacement",
			template: "Hello {{user.email}}",
			context:  map[string]any{"user": map[string]any{"email": "a@b.com"}},
			expected: "Hello a@b.com",
		},
		{
			name:     "missing path keeps placeholder",
			template: "Hi {{missing.x}}",
			context:  map[string]any{},
			expected: "Hi {{missing.x}}",
		},
		{
			name:     "multiple placeholders",
			template: "{{a}} and {{b}}",
			context:  map[string]any{"a": "one", "b": "two"},
			expected: "one and two",
		},
		{
			name:     "numeric value",
			template: "total: {{order.total}}",
			context:  map[string]any{"order": map[string]any{"total": 42.5}},
			expected: "total: 42.5",
		},
		{
			name:     "integer-valued float has no trailing zeros",
			template: "n={{n}}",
			context:  map[string]any{"n": float64(7)},
			expected: "n=7",
		},
		{
			name:     "boolean value",
			template: "enabled: {{flag}}",
			context:  map[string]any{"flag": true},
			expected: "enabled: true",
		},
		{
			name:     "whitespace inside braces",
			template: "Hello {{ user.name }}",
			context:  map[string]any{"user": map[string]any{"name": "Ada"}},
			expected: "Hello Ada",
		},
		{
			name:     "null value keeps placeholder",
			template: "v={{value}}",
			context:  map[string]any{"value": nil},
			expected: "v={{value}}",
		},
		{
			name:     "object value renders as json",
			template: "{{user}}",
			context:  map[string]any{"user": map[string]any{"id": "u1"}},
			expected: `{"id":"u1"}`,
		},
		{
			name:     "no placeholders",
			template: "plain text",
			context:  map[string]any{"a": 1},
			expected: "plain text",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Interpolate(tc.template, tc.context))
		})
	}
}

func TestInterpolateParams(t *testing.T) {
	context := map[string]any{
		"user": map[string]any{"email": "a@b.com"},
		"step_results": map[string]any{
			"0": map[string]any{"status_code": float64(200)},
		},
	}

	params := map[string]any{
		"to":      "{{user.email}}",
		"subject": "status {{step_results.0.status_code}}",
		"retries": 3,
		"nested": map[string]any{
			"body": "Hello {{user.email}}",
		},
		"list": []any{"{{user.email}}", 1},
	}

	result := InterpolateParams(params, context)

	assert.Equal(t, "a@b.com", result["to"])
	assert.Equal(t, "status 200", result["subject"])
	assert.Equal(t, 3, result["retries"])
	assert.Equal(t, "Hello a@b.com", result["nested"].(map[string]any)["body"])
	assert.Equal(t, []any{"a@b.com", 1}, result["list"])

	// The input must not be mutated.
	assert.Equal(t, "{{user.email}}", params["to"])
}

func TestInterpolateParams_Nil(t *testing.T) {
	assert.Nil(t, InterpolateParams(nil, map[string]any{}))
}
