package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/solatis/shelfkeeper/internal/types"
)

/*
 * Rule tree model.
 *
 * A rule tree is a root Group whose children are Rules (leaves) or nested
 * Groups. On the wire the two are told apart by shape: an object carrying a
 * "rules" array is a Group, anything else is a Rule. That check happens once,
 * here, while decoding; compiler and evaluator switch on Node instead.
 *
 * Decoding is lenient below the root. A child that is not an object, or a
 * rule whose fields have the wrong JSON types, decodes to an inert rule so a
 * half-built filter still yields a best-effort result. Only a document that
 * is not JSON at all, or whose root is not a group, is an invalid filter.
 */

// Join combines the children of a Group.
type Join string

const (
	JoinAnd Join = "and"
	JoinOr  Join = "or"
)

// normalize maps missing or unrecognised joins to "and".
func (j Join) normalize() Join {
	if strings.EqualFold(string(j), string(JoinOr)) {
		return JoinOr
	}
	return JoinAnd
}

// Rule is a leaf predicate over one book field.
type Rule struct {
	Field      string
	Operator   Operator
	Value      Scalar
	ValueStart Scalar
	ValueEnd   Scalar
}

// Inert reports whether the rule lacks a field or operator.
// Inert rules contribute nothing to compilation or evaluation.
func (r *Rule) Inert() bool {
	return r == nil || strings.TrimSpace(r.Field) == "" || strings.TrimSpace(string(r.Operator)) == ""
}

// Group combines child nodes under a join.
type Group struct {
	Join  Join
	Rules []Node
}

// Node is either a Rule or a Group; exactly one field is set.
type Node struct {
	Rule  *Rule
	Group *Group
}

// Leaf wraps a rule as a tree node.
func Leaf(r Rule) Node { return Node{Rule: &r} }

// Branch wraps a group as a tree node.
func Branch(g *Group) Node { return Node{Group: g} }

// And returns a group joining nodes with "and".
func And(nodes ...Node) *Group { return &Group{Join: JoinAnd, Rules: nodes} }

// Or returns a group joining nodes with "or".
func Or(nodes ...Node) *Group { return &Group{Join: JoinOr, Rules: nodes} }

// NewRule builds a single-operand (or zero-operand) rule and checks that the
// operator applies to the field and the operand coerces to the field type.
func NewRule(field string, op Operator, value any) (Rule, error) {
	v, err := ScalarOf(value)
	if err != nil {
		return Rule{}, fmt.Errorf("%s: %w", field, err)
	}
	r := Rule{Field: field, Operator: op, Value: v}
	if err := validateRule(&r); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// NewRangeRule builds an in_between rule.
func NewRangeRule(field string, start, end any) (Rule, error) {
	s, err := ScalarOf(start)
	if err != nil {
		return Rule{}, fmt.Errorf("%s: %w", field, err)
	}
	e, err := ScalarOf(end)
	if err != nil {
		return Rule{}, fmt.Errorf("%s: %w", field, err)
	}
	r := Rule{Field: field, Operator: OpInBetween, ValueStart: s, ValueEnd: e}
	if err := validateRule(&r); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Parse decodes a persisted rule tree. Any failure is reported as
// types.ErrInvalidFilter so callers can treat the shelf as matching nothing.
func Parse(data []byte) (*Group, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: malformed JSON", types.ErrInvalidFilter)
	}
	w, ok := decodeWire(data)
	if !ok || !w.isGroup() {
		return nil, fmt.Errorf("%w: root must be an object with a rules array", types.ErrInvalidFilter)
	}
	return w.group(), nil
}

// wireNode is the union of Rule and Group keys as they appear in JSON.
type wireNode struct {
	Join       json.RawMessage `json:"join"`
	Rules      json.RawMessage `json:"rules"`
	Field      json.RawMessage `json:"field"`
	Operator   json.RawMessage `json:"operator"`
	Value      json.RawMessage `json:"value"`
	ValueStart json.RawMessage `json:"valueStart"`
	ValueEnd   json.RawMessage `json:"valueEnd"`
}

func decodeWire(data []byte) (wireNode, bool) {
	var w wireNode
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return w, false
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return w, false
	}
	return w, true
}

func (w wireNode) isGroup() bool {
	r := bytes.TrimSpace(w.Rules)
	return len(r) > 0 && r[0] == '['
}

func (w wireNode) group() *Group {
	g := &Group{Join: Join(rawString(w.Join)).normalize()}
	var children []json.RawMessage
	if err := json.Unmarshal(w.Rules, &children); err != nil {
		return g
	}
	g.Rules = make([]Node, 0, len(children))
	for _, child := range children {
		g.Rules = append(g.Rules, decodeNode(child))
	}
	return g
}

func (w wireNode) rule() *Rule {
	return &Rule{
		Field:      rawString(w.Field),
		Operator:   Operator(rawString(w.Operator)),
		Value:      decodeScalar(w.Value),
		ValueStart: decodeScalar(w.ValueStart),
		ValueEnd:   decodeScalar(w.ValueEnd),
	}
}

func decodeNode(data []byte) Node {
	w, ok := decodeWire(data)
	if !ok {
		return Node{Rule: &Rule{}}
	}
	if w.isGroup() {
		return Node{Group: w.group()}
	}
	return Node{Rule: w.rule()}
}

// rawString returns the JSON string in raw, or "" for any other JSON kind.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// UnmarshalJSON implements json.Unmarshaler with the same leniency as Parse
// below the root.
func (n *Node) UnmarshalJSON(data []byte) error {
	*n = decodeNode(data)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	switch {
	case n.Group != nil:
		return json.Marshal(n.Group)
	case n.Rule != nil:
		return json.Marshal(n.Rule)
	default:
		return []byte("{}"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Unlike Parse it tolerates a
// missing rules array, yielding an empty group.
func (g *Group) UnmarshalJSON(data []byte) error {
	w, ok := decodeWire(data)
	if !ok {
		return fmt.Errorf("%w: group must be a JSON object", types.ErrInvalidFilter)
	}
	*g = *w.group()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (g Group) MarshalJSON() ([]byte, error) {
	rules := g.Rules
	if rules == nil {
		rules = []Node{}
	}
	return json.Marshal(struct {
		Join  Join   `json:"join"`
		Rules []Node `json:"rules"`
	}{Join: g.Join.normalize(), Rules: rules})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rule) UnmarshalJSON(data []byte) error {
	w, ok := decodeWire(data)
	if !ok {
		*r = Rule{}
		return nil
	}
	*r = *w.rule()
	return nil
}

// MarshalJSON implements json.Marshaler. Null operands are omitted.
func (r Rule) MarshalJSON() ([]byte, error) {
	type wireRule struct {
		Field      string  `json:"field,omitempty"`
		Operator   string  `json:"operator,omitempty"`
		Value      *Scalar `json:"value,omitempty"`
		ValueStart *Scalar `json:"valueStart,omitempty"`
		ValueEnd   *Scalar `json:"valueEnd,omitempty"`
	}
	opt := func(s Scalar) *Scalar {
		if s.IsNull() {
			return nil
		}
		return &s
	}
	return json.Marshal(wireRule{
		Field:      r.Field,
		Operator:   string(r.Operator),
		Value:      opt(r.Value),
		ValueStart: opt(r.ValueStart),
		ValueEnd:   opt(r.ValueEnd),
	})
}
