package api

import (
	"context"
	"errors"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/shelfkeeper/internal/types"
)

// CountShelf returns the number of catalog books matching a shelf's tree.
// A stored tree that no longer parses, or that names a field outside the
// registry, is reported as INVALID_ARGUMENT with no count; clients show the
// shelf as empty.
func (s *ShelfService) CountShelf(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	id, err := parseID(req)
	if err != nil {
		return nil, err
	}

	filter, err := s.shelves.Load(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}

	group, err := s.engine.Parse(filter)
	if err != nil {
		s.logger.Warn("stored filter does not parse",
			zap.String("shelf_id", string(id)),
			zap.Error(err),
		)
		return nil, status.Error(codes.InvalidArgument, types.ErrInvalidFilter.Error())
	}

	n, err := s.catalog.Count(ctx, group)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Int64(int64(n)), nil
}

// CompileFilter returns the SQL fragment for a rule tree together with every
// validation problem found in it. Problems do not block compilation: rules
// that cannot be evaluated are left out of the SQL.
func (s *ShelfService) CompileFilter(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	group, err := s.engine.Parse([]byte(req.GetValue()))
	if err != nil {
		return nil, toStatus(err)
	}

	problems := []any{}
	if err := s.engine.Validate(group); err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				problems = append(problems, e.Error())
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	out, err := structpb.NewStruct(map[string]any{
		"sql":      s.engine.Compile(group),
		"problems": problems,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
