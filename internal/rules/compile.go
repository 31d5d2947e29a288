package rules

import (
	"fmt"
	"strings"
)

/*
 * SQL compilation.
 *
 * Lowers a rule tree to one boolean SQL expression (no leading WHERE) meant to
 * be embedded in a query over the books table. Recursive descent, children in
 * array order, fragments joined with " AND " / " OR ".
 *
 * Fragment shapes:
 *   equals/not_equals        col = v / col != v
 *   greater_than/less_than   col > v / col < v
 *   in_between               col BETWEEN v1 AND v2
 *   contains/starts/ends     col LIKE '%raw%' / 'raw%' / '%raw'
 *   is_empty/is_not_empty    (col IS NULL OR col = '') / (col IS NOT NULL AND col != '')
 *   in_list/not_in_list      col IN (v1, v2) / col NOT IN (v1, v2)
 *   library (any operator)   libraryId = v
 *
 * LIKE patterns only double single quotes; % and _ in the operand keep their
 * wildcard meaning. Persisted shelves depend on that, so it stays.
 *
 * List-valued fields (authors, categories) live in relation tables and
 * compile to correlated EXISTS sub-queries, negations to NOT EXISTS, so a
 * row matches when any element matches, exactly as the evaluator does.
 *
 * Shapes above are the SQLite dialect; see Dialect for PostgreSQL.
 *
 * Inert rules emit nothing. A nested group with nothing to emit becomes
 * (1 = 1): the evaluator counts it as a vacuous true, and "()" is not SQL.
 * Unknown fields are emitted verbatim so the database reports the bad column;
 * callers running SQL built from untrusted trees check fields first with
 * RequireKnownFields.
 */

// vacuousTrue is the SQL stand-in for a nested group with no evaluable rules.
const vacuousTrue = "1 = 1"

var comparisonSQL = map[Operator]string{
	OpEquals:      "=",
	OpNotEquals:   "!=",
	OpGreaterThan: ">",
	OpLessThan:    "<",
}

// CompileSQL lowers a rule tree to a SQLite boolean expression.
// An empty or fully inert tree compiles to "".
func CompileSQL(group *Group) string {
	return CompileSQLDialect(group, DialectSQLite)
}

// CompileSQLDialect lowers a rule tree to a boolean expression in dialect d.
func CompileSQLDialect(group *Group, d Dialect) string {
	if group == nil {
		return ""
	}
	return compiler{dialect: d}.group(group)
}

type compiler struct {
	dialect Dialect
}

func (c compiler) group(g *Group) string {
	parts := make([]string, 0, len(g.Rules))
	for i := range g.Rules {
		node := &g.Rules[i]
		switch {
		case node.Group != nil:
			sub := c.group(node.Group)
			if sub == "" {
				sub = vacuousTrue
			}
			parts = append(parts, "("+sub+")")
		case node.Rule != nil:
			if frag, ok := c.rule(node.Rule); ok {
				parts = append(parts, frag)
			}
		}
	}
	return strings.Join(parts, " "+strings.ToUpper(string(g.Join.normalize()))+" ")
}

// rule returns the fragment for r, or false if r is inert.
func (c compiler) rule(r *Rule) (string, bool) {
	if r.Inert() {
		return "", false
	}
	if r.Field == LibraryField {
		return libraryColumn + " = " + c.dialect.libraryLiteral(r.Value), true
	}
	d, _ := describe(r.Field)
	if !d.Type.Supports(r.Operator) {
		return "", false
	}
	if d.Relation != nil {
		return c.listRule(d, r)
	}
	return c.scalarRule(d, r)
}

func (c compiler) scalarRule(d FieldDescriptor, r *Rule) (string, bool) {
	col := d.Column
	switch r.Operator {
	case OpIsEmpty:
		return c.dialect.emptyCheck(d.Type, col, false), true
	case OpIsNotEmpty:
		return c.dialect.emptyCheck(d.Type, col, true), true
	case OpContains, OpStartsWith, OpEndsWith:
		return c.dialect.like(r.Operator, col, r.Value.Text()), true
	case OpInList, OpNotInList:
		values := listOperands(d.Type, r.Value)
		if len(values) == 0 {
			return "", false
		}
		literals := make([]string, len(values))
		for i, v := range values {
			literals[i] = c.dialect.literal(d.Type, v)
		}
		keyword := " IN ("
		if r.Operator == OpNotInList {
			keyword = " NOT IN ("
		}
		return col + keyword + strings.Join(literals, ", ") + ")", true
	case OpInBetween:
		start, ok := coerceOperand(d.Type, r.ValueStart)
		if !ok {
			return "", false
		}
		end, ok := coerceOperand(d.Type, r.ValueEnd)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", col, c.dialect.literal(d.Type, start), c.dialect.literal(d.Type, end)), true
	default:
		v, ok := coerceOperand(d.Type, r.Value)
		if !ok {
			return "", false
		}
		return col + " " + comparisonSQL[r.Operator] + " " + c.dialect.literal(d.Type, v), true
	}
}

// listRule compiles a rule over a relation-backed list field. Element
// comparisons fold ASCII case on both sides: the element column is wrapped
// by the dialect's fold and operands are folded here.
func (c compiler) listRule(d FieldDescriptor, r *Rule) (string, bool) {
	rel := d.Relation
	elem := c.dialect.fold(rel.Table + "." + rel.Column)

	positive, negate := r.Operator.negated()
	var pred string
	switch positive {
	case OpIsEmpty:
		return "NOT " + existsElement(rel, ""), true
	case OpIsNotEmpty:
		return existsElement(rel, ""), true
	case OpEquals:
		pred = elem + " = " + quoteSQLString(foldASCII(r.Value.Text()))
	case OpContains, OpStartsWith, OpEndsWith:
		pred = c.dialect.likeFolded(positive, elem, r.Value.Text())
	case OpInList:
		pieces := splitList(r.Value)
		if len(pieces) == 0 {
			return "", false
		}
		literals := make([]string, len(pieces))
		for i, p := range pieces {
			literals[i] = quoteSQLString(foldASCII(p))
		}
		pred = elem + " IN (" + strings.Join(literals, ", ") + ")"
	default:
		return "", false
	}

	if negate {
		return "NOT " + existsElement(rel, pred), true
	}
	return existsElement(rel, pred), true
}

func existsElement(rel *ListRelation, pred string) string {
	var b strings.Builder
	b.WriteString("EXISTS (SELECT 1 FROM ")
	b.WriteString(rel.Table)
	b.WriteString(" WHERE ")
	b.WriteString(rel.Table)
	b.WriteString(".book_id = ")
	b.WriteString(booksTable)
	b.WriteString(".id")
	if pred != "" {
		b.WriteString(" AND ")
		b.WriteString(pred)
	}
	b.WriteString(")")
	return b.String()
}

// likePattern wraps raw for LIKE. Only single quotes are escaped.
func likePattern(op Operator, raw string) string {
	escaped := strings.ReplaceAll(raw, "'", "''")
	switch op {
	case OpStartsWith:
		return "'" + escaped + "%'"
	case OpEndsWith:
		return "'%" + escaped + "'"
	default:
		return "'%" + escaped + "%'"
	}
}
