package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/shelfkeeper/internal/types"
)

// Error mapping:
// Unknown shelf IDs map to NOT_FOUND.
// Validation errors map to INVALID_ARGUMENT.
// Context timeouts map to DEADLINE_EXCEEDED.
// Everything else is a storage failure and maps to UNAVAILABLE.
func toStatus(err error) error {
	switch {
	case errors.Is(err, types.ErrShelfNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrInvalidFilter), errors.Is(err, types.ErrEmptyShelfName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
