package rules

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

/*
 * Value normalization shared by the SQL compiler and the in-memory evaluator.
 *
 * Both paths must classify a book identically, so every decision about what
 * an operand means is made here exactly once:
 *
 *   - FormatSQLValue: the literal the compiler embeds in SQL
 *       null/""      -> NULL
 *       bool         -> true / false
 *       numeric text -> unquoted number
 *       date text    -> 'YYYY-MM-DD'
 *       otherwise    -> 'text' with ' doubled
 *   - canonicalText: the text a catalog text column is compared against
 *     once the database has applied the literal above (evaluator side)
 *   - coerceOperand: operand coercion driven by the field's semantic type;
 *     a failed coercion makes the rule inert on both paths
 *
 * Dates compare at day granularity in the timezone they were written in.
 */

// dayLayout is the canonical date form stored in the catalog and emitted in SQL.
const dayLayout = "2006-01-02"

var dateLayouts = []string{
	dayLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// numericPattern accepts literals valid in both SQLite and PostgreSQL.
// strconv.ParseFloat alone would also accept "NaN", "Inf" and hex floats.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func isNumeric(s string) bool {
	return numericPattern.MatchString(strings.TrimSpace(s))
}

// parseDay parses s with any accepted layout and truncates it to the day.
func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// DayString normalizes a date to YYYY-MM-DD. The catalog stores dates in this
// form so SQL string comparison orders them chronologically.
func DayString(s string) (string, bool) {
	d, ok := parseDay(s)
	if !ok {
		return "", false
	}
	return d.Format(dayLayout), true
}

// foldASCII lower-cases A-Z and leaves every other byte alone, which is all
// SQLite's LIKE and LOWER() fold. strings.ToLower would also fold "É".
func foldASCII(s string) string {
	i := strings.IndexFunc(s, func(r rune) bool { return 'A' <= r && r <= 'Z' })
	if i < 0 {
		return s
	}
	b := []byte(s)
	for ; i < len(b); i++ {
		if 'A' <= b[i] && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// FormatSQLValue renders an operand as a SQL literal.
func FormatSQLValue(v Scalar) string {
	switch v.Kind() {
	case KindNull:
		return "NULL"
	case KindBool:
		b, _ := v.BoolValue()
		return strconv.FormatBool(b)
	}
	text := v.Text()
	if text == "" {
		return "NULL"
	}
	if isNumeric(text) {
		return strings.TrimSpace(text)
	}
	if day, ok := DayString(text); ok {
		return quoteSQLString(day)
	}
	return quoteSQLString(text)
}

// canonicalText mirrors FormatSQLValue for comparisons against text columns.
// ok is false when the literal would be NULL, which never compares equal.
// Booleans are integers to SQLite, so true reaches a text column as "1".
func canonicalText(v Scalar) (string, bool) {
	switch v.Kind() {
	case KindNull:
		return "", false
	case KindBool:
		if b, _ := v.BoolValue(); b {
			return "1", true
		}
		return "0", true
	}
	text := v.Text()
	if text == "" {
		return "", false
	}
	if isNumeric(text) {
		return numericText(strings.TrimSpace(text)), true
	}
	if day, ok := DayString(text); ok {
		return day, true
	}
	return text, true
}

// numericText renders an unquoted numeric literal the way SQLite does when it
// applies TEXT affinity to it: integers lose leading zeros and sign, reals go
// through %.15g and always carry a decimal point. So isbn10 = 0441013593
// compares the column against "441013593".
func numericText(lit string) string {
	if !strings.ContainsAny(lit, ".eE") {
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return strconv.FormatInt(n, 10)
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return lit
	}
	s := strconv.FormatFloat(f, 'g', 15, 64)
	mantissa, exp, hasExp := strings.Cut(s, "e")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	if hasExp {
		return mantissa + "e" + exp
	}
	return mantissa
}

// coerceOperand converts an operand to the form a field of type t compares
// against. Strings, enums, lists and unknown fields take operands as-is.
func coerceOperand(t FieldType, v Scalar) (Scalar, bool) {
	switch t {
	case FieldTypeNumber:
		if v.Kind() != KindNumber && v.Kind() != KindString {
			return Scalar{}, false
		}
		text := strings.TrimSpace(v.Text())
		if !isNumeric(text) {
			return Scalar{}, false
		}
		return Scalar{kind: KindNumber, text: text}, true
	case FieldTypeDate:
		if v.Kind() != KindString {
			return Scalar{}, false
		}
		day, ok := DayString(v.Text())
		if !ok {
			return Scalar{}, false
		}
		return String(day), true
	case FieldTypeBoolean:
		if _, ok := v.BoolValue(); ok {
			return v, true
		}
		if v.Kind() != KindString {
			return Scalar{}, false
		}
		switch strings.ToLower(strings.TrimSpace(v.Text())) {
		case "true":
			return Bool(true), true
		case "false":
			return Bool(false), true
		}
		return Scalar{}, false
	default:
		return v, true
	}
}

// numberOf parses a numeric operand; only call on coerced number scalars.
func numberOf(v Scalar) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v.Text()), 64)
	return f
}

// splitList splits a comma-separated operand, trimming pieces and dropping
// empty ones.
func splitList(v Scalar) []string {
	raw := strings.Split(v.Text(), ",")
	out := make([]string, 0, len(raw))
	for _, piece := range raw {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

// listOperands splits a list operand and coerces each piece to t, dropping
// pieces that do not coerce.
func listOperands(t FieldType, v Scalar) []Scalar {
	pieces := splitList(v)
	out := make([]Scalar, 0, len(pieces))
	for _, piece := range pieces {
		if c, ok := coerceOperand(t, String(piece)); ok {
			out = append(out, c)
		}
	}
	return out
}
