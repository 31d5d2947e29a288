package rules

/*
 * Operator set.
 *
 * Operators travel as strings in persisted shelves, so Operator is a string
 * type over a closed set of constants. Unknown strings survive a decode and
 * re-encode untouched but are inert to both evaluators.
 *
 * Applicability depends on the field's semantic type (see FieldType.Supports).
 * Comparison helpers for the in-memory path live in evaluate.go; their SQL
 * counterparts live in compile.go.
 */

// Operator names a rule predicate.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpInBetween   Operator = "in_between"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
	OpInList      Operator = "in_list"
	OpNotInList   Operator = "not_in_list"
)

// Operators lists every known operator in builder-menu order.
var Operators = []Operator{
	OpEquals, OpNotEquals,
	OpContains, OpStartsWith, OpEndsWith,
	OpGreaterThan, OpLessThan, OpInBetween,
	OpIsEmpty, OpIsNotEmpty,
	OpInList, OpNotInList,
}

// Known reports whether op is one of the defined operators.
func (op Operator) Known() bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpStartsWith, OpEndsWith,
		OpGreaterThan, OpLessThan, OpInBetween, OpIsEmpty, OpIsNotEmpty,
		OpInList, OpNotInList:
		return true
	default:
		return false
	}
}

// Arity returns the number of operands the operator consumes.
// in_between reads ValueStart/ValueEnd; everything else with arity 1 reads Value.
func (op Operator) Arity() int {
	switch op {
	case OpIsEmpty, OpIsNotEmpty:
		return 0
	case OpInBetween:
		return 2
	default:
		return 1
	}
}

// negated reports whether op is the negation of a positive operator, and
// returns that operator. List-valued fields compile negations as NOT EXISTS
// over the positive predicate.
func (op Operator) negated() (Operator, bool) {
	switch op {
	case OpNotEquals:
		return OpEquals, true
	case OpNotInList:
		return OpInList, true
	default:
		return op, false
	}
}

func (op Operator) isPattern() bool {
	return op == OpContains || op == OpStartsWith || op == OpEndsWith
}
