package types

import "errors"

// Sentinel errors for shelfkeeper operations.
var (
	// ErrInvalidFilter indicates a persisted rule tree could not be decoded.
	// Callers treat it as zero matches rather than a failure of the request.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrIncompleteRule indicates a rule without a field or operator.
	ErrIncompleteRule = errors.New("rule is missing field or operator")

	// ErrInvalidOperator indicates an unknown operator or one not applicable to the field type.
	ErrInvalidOperator = errors.New("invalid operator for field type")

	// ErrUnknownField indicates a field name absent from the field registry.
	ErrUnknownField = errors.New("unknown field")

	// ErrCoercionFailed indicates an operand could not be coerced to the field type.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrTreeTooDeep indicates group nesting beyond MaxTreeDepth.
	ErrTreeTooDeep = errors.New("rule tree exceeds maximum depth")

	// ErrTooManyListValues indicates an in_list operand beyond MaxListValues.
	ErrTooManyListValues = errors.New("list operand has too many values")

	// ErrShelfNotFound indicates no shelf exists with the requested ID.
	ErrShelfNotFound = errors.New("shelf not found")

	// ErrEmptyShelfName indicates a shelf saved without a usable name.
	ErrEmptyShelfName = errors.New("shelf name is empty or too long")
)
