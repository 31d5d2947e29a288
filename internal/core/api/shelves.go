package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/shelfkeeper/internal/types"
)

// SaveShelf stores a named rule tree and returns the new shelf ID.
func (s *ShelfService) SaveShelf(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	fields := req.GetFields()
	filter, err := filterBytes(fields["filter"])
	if err != nil {
		return nil, toStatus(err)
	}

	id, err := s.shelves.Save(ctx, fields["name"].GetStringValue(), filter)
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info("shelf saved", zap.String("shelf_id", string(id)))
	return wrapperspb.String(string(id)), nil
}

// filterBytes accepts the rule tree as JSON text or as a nested Struct.
func filterBytes(v *structpb.Value) ([]byte, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return []byte(k.StringValue), nil
	case *structpb.Value_StructValue:
		return json.Marshal(k.StructValue.AsMap())
	default:
		return nil, fmt.Errorf("%w: filter must be a JSON string or object", types.ErrInvalidFilter)
	}
}

func parseID(req *wrapperspb.StringValue) (types.ShelfID, error) {
	id, err := types.ParseShelfID(req.GetValue())
	if err != nil {
		return "", status.Error(codes.InvalidArgument, fmt.Sprintf("invalid shelf id: %v", err))
	}
	return id, nil
}

func shelfFields(shelf *types.Shelf) map[string]any {
	return map[string]any{
		"id":        string(shelf.ID),
		"name":      shelf.Name,
		"filter":    string(shelf.Filter),
		"createdAt": shelf.CreatedAt.Format(time.RFC3339),
	}
}

// GetShelf returns one shelf.
func (s *ShelfService) GetShelf(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := parseID(req)
	if err != nil {
		return nil, err
	}
	shelf, err := s.shelves.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(shelfFields(shelf))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// ListShelves returns every shelf, oldest first.
func (s *ShelfService) ListShelves(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	all, err := s.shelves.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, len(all))
	for i := range all {
		items[i] = shelfFields(&all[i])
	}
	out, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// DeleteShelf removes a shelf.
func (s *ShelfService) DeleteShelf(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	id, err := parseID(req)
	if err != nil {
		return nil, err
	}
	if err := s.shelves.Delete(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("shelf deleted", zap.String("shelf_id", string(id)))
	return &emptypb.Empty{}, nil
}
