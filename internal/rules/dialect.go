package rules

import (
	"fmt"
	"strings"
)

// Dialect selects the SQL flavour a rule tree compiles to.
//
// SQLite is the reference: the in-memory evaluator reproduces its semantics.
// The PostgreSQL dialect emits SQL that classifies books the same way on a
// PostgreSQL catalog:
//   - LIKE is case-sensitive there, so both sides of a pattern are folded with
//     TRANSLATE over A-Z, which folds exactly what SQLite's LIKE folds, and the
//     backslash escape is switched off with ESCAPE ''
//   - list elements fold with the same TRANSLATE instead of LOWER(), which
//     would also fold non-ASCII letters
//   - text columns take quoted literals; an unquoted number or a boolean
//     against text is a type error
//   - number and boolean columns cannot be compared with '', so emptiness is
//     IS NULL alone (the catalog never stores '' there)
//   - libraryId only takes integer literals; anything non-numeric is NULL
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// ParseDialect maps a dialect, driver or URL scheme name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	}
	return DialectSQLite, fmt.Errorf("unknown SQL dialect %q (expected sqlite or postgres)", name)
}

const (
	upperASCII = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerASCII = "abcdefghijklmnopqrstuvwxyz"
)

// fold wraps expr so it compares with ASCII letters lower-cased.
func (d Dialect) fold(expr string) string {
	if d == DialectPostgres {
		return "TRANSLATE(" + expr + ", '" + upperASCII + "', '" + lowerASCII + "')"
	}
	return "LOWER(" + expr + ")"
}

// like renders a pattern match of col against raw. SQLite's LIKE already
// ignores ASCII case.
func (d Dialect) like(op Operator, col, raw string) string {
	if d == DialectPostgres {
		return d.fold(col) + " LIKE " + likePattern(op, foldASCII(raw)) + " ESCAPE ''"
	}
	return col + " LIKE " + likePattern(op, raw)
}

// likeFolded renders a pattern match of an already folded expression.
func (d Dialect) likeFolded(op Operator, expr, raw string) string {
	pred := expr + " LIKE " + likePattern(op, foldASCII(raw))
	if d == DialectPostgres {
		pred += " ESCAPE ''"
	}
	return pred
}

// literal renders an operand for a column of type t.
func (d Dialect) literal(t FieldType, v Scalar) string {
	if d == DialectPostgres && (t == FieldTypeString || t == FieldTypeEnum) {
		text, ok := canonicalText(v)
		if !ok {
			return "NULL"
		}
		return quoteSQLString(text)
	}
	return FormatSQLValue(v)
}

// libraryLiteral renders the operand compared against libraryId.
func (d Dialect) libraryLiteral(v Scalar) string {
	if d != DialectPostgres {
		return FormatSQLValue(v)
	}
	if flag, ok := v.BoolValue(); ok {
		if flag {
			return "1"
		}
		return "0"
	}
	if v.IsNull() || !isNumeric(v.Text()) {
		return "NULL"
	}
	return strings.TrimSpace(v.Text())
}

// emptyCheck renders is_empty, or is_not_empty when negate is set.
func (d Dialect) emptyCheck(t FieldType, col string, negate bool) string {
	if d == DialectPostgres && (t == FieldTypeNumber || t == FieldTypeBoolean) {
		if negate {
			return col + " IS NOT NULL"
		}
		return col + " IS NULL"
	}
	if negate {
		return fmt.Sprintf("(%s IS NOT NULL AND %s != '')", col, col)
	}
	return fmt.Sprintf("(%s IS NULL OR %s = '')", col, col)
}
