package api

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/shelfkeeper/internal/types"
)

// Client calls ShelfService over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// SaveShelf stores a rule tree under name.
func (c *Client) SaveShelf(ctx context.Context, name string, filter []byte) (types.ShelfID, error) {
	req, err := structpb.NewStruct(map[string]any{"name": name, "filter": string(filter)})
	if err != nil {
		return "", err
	}
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("SaveShelf"), req, out); err != nil {
		return "", err
	}
	return types.ShelfID(out.GetValue()), nil
}

func shelfFromStruct(s *structpb.Struct) (types.Shelf, error) {
	f := s.GetFields()
	createdAt, err := time.Parse(time.RFC3339, f["createdAt"].GetStringValue())
	if err != nil {
		return types.Shelf{}, fmt.Errorf("invalid createdAt: %w", err)
	}
	return types.Shelf{
		ID:        types.ShelfID(f["id"].GetStringValue()),
		Name:      f["name"].GetStringValue(),
		Filter:    []byte(f["filter"].GetStringValue()),
		CreatedAt: createdAt,
	}, nil
}

// GetShelf fetches one shelf.
func (c *Client) GetShelf(ctx context.Context, id types.ShelfID) (types.Shelf, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetShelf"), wrapperspb.String(string(id)), out); err != nil {
		return types.Shelf{}, err
	}
	return shelfFromStruct(out)
}

// ListShelves fetches every shelf.
func (c *Client) ListShelves(ctx context.Context) ([]types.Shelf, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("ListShelves"), &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	shelves := make([]types.Shelf, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		shelf, err := shelfFromStruct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		shelves = append(shelves, shelf)
	}
	return shelves, nil
}

// DeleteShelf removes a shelf.
func (c *Client) DeleteShelf(ctx context.Context, id types.ShelfID) error {
	return c.cc.Invoke(ctx, fullMethod("DeleteShelf"), wrapperspb.String(string(id)), new(emptypb.Empty))
}

// CountShelf returns how many catalog books a shelf matches.
func (c *Client) CountShelf(ctx context.Context, id types.ShelfID) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, fullMethod("CountShelf"), wrapperspb.String(string(id)), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// CompileFilter returns the SQL for a rule tree and its validation problems.
func (c *Client) CompileFilter(ctx context.Context, filter []byte) (string, []string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("CompileFilter"), wrapperspb.String(string(filter)), out); err != nil {
		return "", nil, err
	}
	var problems []string
	for _, p := range out.GetFields()["problems"].GetListValue().GetValues() {
		problems = append(problems, p.GetStringValue())
	}
	return out.GetFields()["sql"].GetStringValue(), problems, nil
}
