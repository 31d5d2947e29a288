// internal/rules/evaluate.go
package rules

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/solatis/shelfkeeper/internal/types"
)

/*
 * In-memory evaluation.
 *
 * Decides whether one book satisfies a rule tree. This is the reference the
 * SQL compiler is checked against: for any tree and any book stored in the
 * catalog, EvaluateGroup(book, tree) is true exactly when the book's row
 * satisfies CompileSQL(tree).
 *
 * Evaluation flow:
 *   1. Group: short-circuit "and" on the first false child, "or" on the first
 *      true child. Inert children are skipped entirely.
 *   2. A group with no evaluable children is vacuously true.
 *   3. Rule: library bypass, then operator applicability, then operand
 *      coercion (failure makes the rule inert), then comparison.
 *
 * Absent values follow SQL NULL: every comparison against an absent field is
 * false, negated ones included. Only is_empty is true for an absent field.
 * Strings compare exactly; contains/starts_with/ends_with fold ASCII case
 * only, as LIKE does. Integer columns compare exactly against integer
 * literals, as SQLite does, so values beyond 2^53 are not rounded.
 */

// EvaluateGroup reports whether book satisfies the tree rooted at group.
// A nil group matches everything.
func EvaluateGroup(book *types.Book, group *Group) bool {
	if group == nil {
		return true
	}
	return evaluateGroup(book, group)
}

// Filter returns the books that satisfy group, in input order.
func Filter(books []types.Book, group *Group) []types.Book {
	out := make([]types.Book, 0, len(books))
	for i := range books {
		if EvaluateGroup(&books[i], group) {
			out = append(out, books[i])
		}
	}
	return out
}

// Count returns how many books satisfy group.
func Count(books []types.Book, group *Group) int {
	n := 0
	for i := range books {
		if EvaluateGroup(&books[i], group) {
			n++
		}
	}
	return n
}

func evaluateGroup(b *types.Book, g *Group) bool {
	join := g.Join.normalize()
	evaluated := false
	for i := range g.Rules {
		matched, ok := evaluateNode(b, &g.Rules[i])
		if !ok {
			continue
		}
		evaluated = true
		if join == JoinOr && matched {
			return true
		}
		if join == JoinAnd && !matched {
			return false
		}
	}
	if join == JoinOr {
		return !evaluated
	}
	return true
}

// evaluateNode returns the node's truth value, and false as the second result
// when the node is inert.
func evaluateNode(b *types.Book, n *Node) (bool, bool) {
	switch {
	case n.Group != nil:
		return evaluateGroup(b, n.Group), true
	case n.Rule != nil:
		return evaluateRule(b, n.Rule)
	default:
		return false, false
	}
}

func evaluateRule(b *types.Book, r *Rule) (bool, bool) {
	if r.Inert() {
		return false, false
	}
	if r.Field == LibraryField {
		return matchLibrary(b, r.Value), true
	}
	d, known := describe(r.Field)
	if !d.Type.Supports(r.Operator) {
		return false, false
	}
	if d.Relation != nil {
		var elems []string
		if v, ok := d.Value(b).([]string); ok {
			elems = v
		}
		return evaluateList(r, elems)
	}
	c := cell{}
	if known {
		c = cellOf(d.Type, d.Value(b))
	}
	return evaluateScalar(d.Type, r, c)
}

// matchLibrary compares the operand to the book's library identifier the way
// "libraryId = <literal>" does.
func matchLibrary(b *types.Book, v Scalar) bool {
	if b == nil {
		return false
	}
	if flag, ok := v.BoolValue(); ok {
		if flag {
			return b.LibraryID == 1
		}
		return b.LibraryID == 0
	}
	if v.IsNull() || !isNumeric(v.Text()) {
		return false
	}
	return compareInteger(b.LibraryID, v.Text()) == 0
}

// cell is a book field value lifted into a comparable form.
type cell struct {
	present  bool
	text     string
	num      float64
	whole    int64
	integral bool
	day      time.Time
	flag     bool
}

func cellOf(t FieldType, v any) cell {
	switch t {
	case FieldTypeString, FieldTypeEnum:
		s, _ := v.(string)
		return cell{present: s != "", text: s}
	case FieldTypeDate:
		s, _ := v.(string)
		d, ok := parseDay(s)
		return cell{present: ok, day: d}
	case FieldTypeNumber:
		switch x := v.(type) {
		case *float64:
			if x != nil {
				return cell{present: true, num: *x}
			}
		case *int:
			if x != nil {
				return cell{present: true, num: float64(*x), whole: int64(*x), integral: true}
			}
		}
	case FieldTypeBoolean:
		if x, ok := v.(*bool); ok && x != nil {
			return cell{present: true, flag: *x}
		}
	}
	return cell{}
}

// compare orders c against a coerced operand. ok is false when the comparison
// is unknown in SQL terms, which happens for NULL literals.
func (c cell) compare(t FieldType, o Scalar) (int, bool) {
	switch t {
	case FieldTypeNumber:
		if c.integral {
			return compareInteger(c.whole, o.Text()), true
		}
		if n, ok := integerLiteral(o.Text()); ok {
			return -compareIntFloat(n, c.num), true
		}
		return cmp.Compare(c.num, numberOf(o)), true
	case FieldTypeDate:
		d, ok := parseDay(o.Text())
		if !ok {
			return 0, false
		}
		return c.day.Compare(d), true
	case FieldTypeBoolean:
		want, _ := o.BoolValue()
		if c.flag == want {
			return 0, true
		}
		return 1, true
	default:
		text, ok := canonicalText(o)
		if !ok {
			return 0, false
		}
		return strings.Compare(c.text, text), true
	}
}

func evaluateScalar(t FieldType, r *Rule, c cell) (bool, bool) {
	switch r.Operator {
	case OpIsEmpty:
		return !c.present, true
	case OpIsNotEmpty:
		return c.present, true
	case OpContains, OpStartsWith, OpEndsWith:
		if !c.present {
			return false, true
		}
		return matchPattern(r.Operator, foldASCII(c.text), foldASCII(r.Value.Text())), true
	case OpInList, OpNotInList:
		operands := listOperands(t, r.Value)
		if len(operands) == 0 {
			return false, false
		}
		if !c.present {
			return false, true
		}
		in := false
		for _, o := range operands {
			if order, ok := c.compare(t, o); ok && order == 0 {
				in = true
				break
			}
		}
		return in == (r.Operator == OpInList), true
	case OpInBetween:
		start, ok := coerceOperand(t, r.ValueStart)
		if !ok {
			return false, false
		}
		end, ok := coerceOperand(t, r.ValueEnd)
		if !ok {
			return false, false
		}
		if !c.present {
			return false, true
		}
		lo, okLo := c.compare(t, start)
		hi, okHi := c.compare(t, end)
		return okLo && okHi && lo >= 0 && hi <= 0, true
	default:
		o, ok := coerceOperand(t, r.Value)
		if !ok {
			return false, false
		}
		if !c.present {
			return false, true
		}
		order, known := c.compare(t, o)
		if !known {
			return false, true
		}
		switch r.Operator {
		case OpEquals:
			return order == 0, true
		case OpNotEquals:
			return order != 0, true
		case OpGreaterThan:
			return order > 0, true
		case OpLessThan:
			return order < 0, true
		}
		return false, false
	}
}

// evaluateList applies r to a list field with "any element" semantics.
// Elements and operands compare with ASCII case folded, as LOWER() does in
// SQLite. Blank elements are ignored; the catalog never stores them.
func evaluateList(r *Rule, elems []string) (bool, bool) {
	lowered := make([]string, 0, len(elems))
	for _, e := range elems {
		if strings.TrimSpace(e) != "" {
			lowered = append(lowered, foldASCII(e))
		}
	}

	positive, negate := r.Operator.negated()
	matched := false
	switch positive {
	case OpIsEmpty:
		return len(lowered) == 0, true
	case OpIsNotEmpty:
		return len(lowered) > 0, true
	case OpEquals:
		target := foldASCII(r.Value.Text())
		for _, e := range lowered {
			if e == target {
				matched = true
				break
			}
		}
	case OpContains, OpStartsWith, OpEndsWith:
		pattern := foldASCII(r.Value.Text())
		for _, e := range lowered {
			if matchPattern(positive, e, pattern) {
				matched = true
				break
			}
		}
	case OpInList:
		pieces := splitList(r.Value)
		if len(pieces) == 0 {
			return false, false
		}
		want := make(map[string]struct{}, len(pieces))
		for _, p := range pieces {
			want[foldASCII(p)] = struct{}{}
		}
		for _, e := range lowered {
			if _, ok := want[e]; ok {
				matched = true
				break
			}
		}
	default:
		return false, false
	}

	if negate {
		return !matched, true
	}
	return matched, true
}

func matchPattern(op Operator, s, pattern string) bool {
	switch op {
	case OpStartsWith:
		return strings.HasPrefix(s, pattern)
	case OpEndsWith:
		return strings.HasSuffix(s, pattern)
	default:
		return strings.Contains(s, pattern)
	}
}

// integerLiteral parses lit as SQLite reads an unquoted integer: no decimal
// point or exponent, and within int64. Anything else is a REAL.
func integerLiteral(lit string) (int64, bool) {
	lit = strings.TrimSpace(lit)
	if strings.ContainsAny(lit, ".eE") {
		return 0, false
	}
	n, err := strconv.ParseInt(lit, 10, 64)
	return n, err == nil
}

// compareInteger orders an INTEGER column value against a numeric literal.
func compareInteger(n int64, lit string) int {
	if m, ok := integerLiteral(lit); ok {
		return cmp.Compare(n, m)
	}
	f, _ := strconv.ParseFloat(strings.TrimSpace(lit), 64)
	return compareIntFloat(n, f)
}

// compareIntFloat orders n against f without rounding n to a float64.
func compareIntFloat(n int64, f float64) int {
	switch {
	case f >= 0x1p63:
		return -1
	case f < -0x1p63:
		return 1
	}
	t := math.Trunc(f)
	if c := cmp.Compare(n, int64(t)); c != 0 {
		return c
	}
	return cmp.Compare(t, f)
}
