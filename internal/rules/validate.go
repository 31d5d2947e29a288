package rules

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/solatis/shelfkeeper/internal/types"
)

/*
 * Construction-time validation.
 *
 * Evaluation is lenient: a rule the engine cannot use is inert and the rest
 * of the tree still runs. Validation is the strict counterpart used when a
 * tree is built or saved, so the UI can point at every broken rule at once.
 * All problems in a tree are collected, each prefixed with its path
 * ("rules[0].rules[2]").
 */

// Validate reports every problem in the tree rooted at g. maxDepth bounds
// group nesting, the root counting as depth 1; zero or less means
// types.MaxTreeDepth. Errors wrap the sentinels in the types package, so
// errors.Is works on the aggregate.
func Validate(g *Group, maxDepth int) error {
	if g == nil {
		return nil
	}
	if maxDepth <= 0 {
		maxDepth = types.MaxTreeDepth
	}
	var result *multierror.Error
	validateGroup(g, "rules", 1, maxDepth, &result)
	return result.ErrorOrNil()
}

func validateGroup(g *Group, path string, depth, maxDepth int, result **multierror.Error) {
	if depth > maxDepth {
		*result = multierror.Append(*result, fmt.Errorf("%s: %w (limit %d)", path, types.ErrTreeTooDeep, maxDepth))
		return
	}
	for i := range g.Rules {
		node := &g.Rules[i]
		childPath := fmt.Sprintf("%s[%d]", path, i)
		switch {
		case node.Group != nil:
			validateGroup(node.Group, childPath+".rules", depth+1, maxDepth, result)
		case node.Rule != nil:
			if err := validateRule(node.Rule); err != nil {
				*result = multierror.Append(*result, fmt.Errorf("%s: %w", childPath, err))
			}
		default:
			*result = multierror.Append(*result, fmt.Errorf("%s: %w", childPath, types.ErrIncompleteRule))
		}
	}
}

// validateRule checks that r would not be inert.
func validateRule(r *Rule) error {
	if r.Inert() {
		return types.ErrIncompleteRule
	}
	if r.Field == LibraryField {
		return nil
	}
	if !r.Operator.Known() {
		return fmt.Errorf("%w: %q", types.ErrInvalidOperator, r.Operator)
	}
	d, ok := LookupField(r.Field)
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownField, r.Field)
	}
	if !d.Type.Supports(r.Operator) {
		return fmt.Errorf("%w: %s does not apply to %s field %q", types.ErrInvalidOperator, r.Operator, d.Type, d.Name)
	}

	switch r.Operator {
	case OpIsEmpty, OpIsNotEmpty:
		return nil
	case OpInList, OpNotInList:
		pieces := splitList(r.Value)
		if len(pieces) > types.MaxListValues {
			return fmt.Errorf("%w: %d values (limit %d)", types.ErrTooManyListValues, len(pieces), types.MaxListValues)
		}
		if len(listOperands(d.Type, r.Value)) == 0 {
			return fmt.Errorf("%w: %s needs at least one %s value", types.ErrCoercionFailed, r.Operator, d.Type)
		}
		return nil
	case OpInBetween:
		if _, ok := coerceOperand(d.Type, r.ValueStart); !ok {
			return fmt.Errorf("%w: valueStart %s is not a %s", types.ErrCoercionFailed, r.ValueStart, d.Type)
		}
		if _, ok := coerceOperand(d.Type, r.ValueEnd); !ok {
			return fmt.Errorf("%w: valueEnd %s is not a %s", types.ErrCoercionFailed, r.ValueEnd, d.Type)
		}
		return nil
	default:
		if _, ok := coerceOperand(d.Type, r.Value); !ok {
			return fmt.Errorf("%w: value %s is not a %s", types.ErrCoercionFailed, r.Value, d.Type)
		}
		return nil
	}
}

// RequireKnownFields rejects a tree that would compile a column outside the
// field registry. Unknown fields are emitted verbatim, so SQL built from a
// stored or client-supplied tree must pass this check before it runs. Inert
// rules are ignored since they emit nothing. The error wraps
// types.ErrInvalidFilter and types.ErrUnknownField.
func RequireKnownFields(g *Group) error {
	if g == nil {
		return nil
	}
	return requireKnownFields(g, "rules")
}

func requireKnownFields(g *Group, path string) error {
	for i := range g.Rules {
		node := &g.Rules[i]
		childPath := fmt.Sprintf("%s[%d]", path, i)
		switch {
		case node.Group != nil:
			if err := requireKnownFields(node.Group, childPath+".rules"); err != nil {
				return err
			}
		case node.Rule != nil:
			r := node.Rule
			if r.Inert() || r.Field == LibraryField || !r.Operator.Known() {
				continue
			}
			if _, ok := LookupField(r.Field); !ok {
				return fmt.Errorf("%w: %s: %w %q", types.ErrInvalidFilter, childPath, types.ErrUnknownField, r.Field)
			}
		}
	}
	return nil
}
