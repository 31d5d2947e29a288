package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

/*
 * Rule operands.
 *
 * Operands arrive from the rule-builder UI as JSON and are usually strings,
 * even for numeric and date fields ("4", "2005-06-15"). Scalar keeps the JSON
 * kind and the original text so both evaluators coerce from the same input,
 * and so a tree re-encodes without drifting (4 stays 4, "4" stays "4").
 *
 * Arrays are accepted for list operands and folded into the comma-separated
 * form the builder produces; objects are treated as null.
 */

// Kind is the JSON kind of a Scalar.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// Scalar is a single rule operand.
type Scalar struct {
	kind Kind
	text string // string value or number literal
	b    bool
}

// Null returns the null operand.
func Null() Scalar { return Scalar{} }

// String returns a string operand.
func String(s string) Scalar { return Scalar{kind: KindString, text: s} }

// Number returns a numeric operand.
func Number(f float64) Scalar {
	return Scalar{kind: KindNumber, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Bool returns a boolean operand.
func Bool(b bool) Scalar { return Scalar{kind: KindBool, b: b} }

// ScalarOf converts a Go value to a Scalar.
func ScalarOf(v any) (Scalar, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Scalar:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Scalar{kind: KindNumber, text: strconv.Itoa(x)}, nil
	case int64:
		return Scalar{kind: KindNumber, text: strconv.FormatInt(x, 10)}, nil
	case json.Number:
		return Scalar{kind: KindNumber, text: x.String()}, nil
	case []string:
		return String(strings.Join(x, ",")), nil
	default:
		return Scalar{}, fmt.Errorf("unsupported operand type %T", v)
	}
}

// Kind reports the JSON kind of the operand.
func (s Scalar) Kind() Kind { return s.kind }

// IsNull reports whether the operand is null.
func (s Scalar) IsNull() bool { return s.kind == KindNull }

// Text returns the raw textual form: the string itself, the number literal,
// "true"/"false" for booleans and "" for null.
func (s Scalar) Text() string {
	switch s.kind {
	case KindString, KindNumber:
		return s.text
	case KindBool:
		return strconv.FormatBool(s.b)
	default:
		return ""
	}
}

// BoolValue returns the boolean payload and whether the operand is a boolean.
func (s Scalar) BoolValue() (bool, bool) {
	return s.b, s.kind == KindBool
}

func (s Scalar) String() string {
	if s.kind == KindNull {
		return "null"
	}
	return s.Text()
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case KindString:
		return json.Marshal(s.text)
	case KindNumber:
		return []byte(s.text), nil
	case KindBool:
		return json.Marshal(s.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. It never fails on well-formed
// JSON: unsupported shapes decode to null.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	*s = decodeScalar(data)
	return nil
}

func decodeScalar(data []byte) Scalar {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Null()
	}
	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return Null()
		}
		return String(str)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return Null()
		}
		return Bool(b)
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return Null()
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if v := decodeScalar(item); !v.IsNull() {
				parts = append(parts, v.Text())
			}
		}
		return String(strings.Join(parts, ","))
	case 'n', '{':
		return Null()
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return Null()
		}
		return Scalar{kind: KindNumber, text: n.String()}
	}
}
