package models

// Operator is a predicate applied to a value extracted from the trigger
// payload by dotted-path traversal.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorExists      Operator = "exists"
)

// KnownOperator reports whether op is one of the supported operators.
// Unknown operators are a configuration error, never a silent pass.
func KnownOperator(op Operator) bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorContains,
		OperatorGreaterThan, OperatorLessThan, OperatorExists:
		return true
	default:
		return false
	}
}

// Condition gates workflow execution. All conditions on a workflow are
// ANDed; an empty list always passes.
type Condition struct {
	Field    string   `json:"field"           validate:"required"`
	Operator Operator `json:"operator"        validate:"required"`
	Value    any      `json:"value,omitempty"`
}
