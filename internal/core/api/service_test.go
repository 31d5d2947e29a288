package api_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/shelfkeeper/internal/core/api"
	"github.com/solatis/shelfkeeper/internal/core/catalog"
	"github.com/solatis/shelfkeeper/internal/core/db"
	"github.com/solatis/shelfkeeper/internal/core/shelves"
	"github.com/solatis/shelfkeeper/internal/rules"
	"github.com/solatis/shelfkeeper/internal/rules/rulestest"
	"github.com/solatis/shelfkeeper/internal/types"
)

const sciFi = `{"join":"and","rules":[{"field":"categories","operator":"equals","value":"Science Fiction"}]}`

type fixture struct {
	client *api.Client
	svc    *api.ShelfService
	cc     *grpc.ClientConn
	conn   *sqlx.DB
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(ctx, db.MemoryURL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = db.MigrateUp(ctx, conn)
	require.NoError(t, err)
	q, err := db.LoadQueries(conn)
	require.NoError(t, err)

	repo := catalog.New(q)
	require.NoError(t, repo.Insert(ctx, rulestest.Catalog()...))

	svc, err := api.NewShelfService(shelves.New(q), repo, rules.NewEngine(), zaptest.NewLogger(t))
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	api.RegisterShelfServiceServer(srv, svc)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })

	return fixture{client: api.NewClient(cc), svc: svc, cc: cc, conn: conn}
}

func TestNewShelfService_RequiresDependencies(t *testing.T) {
	_, err := api.NewShelfService(nil, nil, nil, nil)
	require.Error(t, err)
}

func TestShelfService_SaveGetCount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	id, err := f.client.SaveShelf(ctx, "Sci-Fi", []byte(sciFi))
	require.NoError(t, err)

	shelf, err := f.client.GetShelf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, shelf.ID)
	assert.Equal(t, "Sci-Fi", shelf.Name)
	assert.Equal(t, sciFi, string(shelf.Filter))
	assert.False(t, shelf.CreatedAt.IsZero())

	n, err := f.client.CountShelf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestShelfService_SaveShelfStructFilter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := structpb.NewStruct(map[string]any{
		"name": "French",
		"filter": map[string]any{
			"join":  "and",
			"rules": []any{map[string]any{"field": "language", "operator": "equals", "value": "French"}},
		},
	})
	require.NoError(t, err)

	out := new(wrapperspb.StringValue)
	require.NoError(t, f.cc.Invoke(ctx, "/shelfkeeper.v1.ShelfService/SaveShelf", req, out))

	n, err := f.client.CountShelf(ctx, types.ShelfID(out.GetValue()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestShelfService_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"save empty name", func() error {
			_, err := f.client.SaveShelf(ctx, " ", []byte(sciFi))
			return err
		}, codes.InvalidArgument},
		{"save malformed filter", func() error {
			_, err := f.client.SaveShelf(ctx, "Broken", []byte(`{"join":`))
			return err
		}, codes.InvalidArgument},
		{"get malformed id", func() error {
			_, err := f.client.GetShelf(ctx, "not-a-uuid")
			return err
		}, codes.InvalidArgument},
		{"get unknown id", func() error {
			_, err := f.client.GetShelf(ctx, types.NewShelfID())
			return err
		}, codes.NotFound},
		{"count unknown id", func() error {
			_, err := f.client.CountShelf(ctx, types.NewShelfID())
			return err
		}, codes.NotFound},
		{"delete unknown id", func() error {
			return f.client.DeleteShelf(ctx, types.NewShelfID())
		}, codes.NotFound},
		{"compile malformed filter", func() error {
			_, _, err := f.client.CompileFilter(ctx, []byte(`[]`))
			return err
		}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err), err.Error())
		})
	}
}

func TestShelfService_CountShelfWithBrokenStoredFilter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	id := types.NewShelfID()
	_, err := f.conn.ExecContext(ctx,
		"INSERT INTO shelves (shelf_id, name, filter, created_at) VALUES (?, ?, ?, ?)",
		string(id), "Legacy", `{"join":"and","rules":`, time.Now().UTC())
	require.NoError(t, err)

	n, err := f.client.CountShelf(ctx, id)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "invalid filter", status.Convert(err).Message())
	assert.Zero(t, n)

	// The handler sends no message alongside the error.
	resp, err := f.svc.CountShelf(ctx, wrapperspb.String(string(id)))
	require.Error(t, err)
	assert.Nil(t, resp)
}

func TestShelfService_CompileFilter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sql, problems, err := f.client.CompileFilter(ctx, []byte(`{"join":"and","rules":[
		{"field":"rating","operator":"greater_than","value":4},
		{"field":"rating","operator":"contains","value":"4"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "rating > 4", sql)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "rules[1]")

	sql, problems, err = f.client.CompileFilter(ctx, []byte(`{"join":"or","rules":[]}`))
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Empty(t, problems)
}

func TestShelfService_ListDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.client.SaveShelf(ctx, "First", []byte(sciFi))
	require.NoError(t, err)
	second, err := f.client.SaveShelf(ctx, "Second", []byte(`{"join":"and","rules":[]}`))
	require.NoError(t, err)

	all, err := f.client.ListShelves(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].ID)
	assert.Equal(t, second, all[1].ID)

	// An empty tree counts the whole catalog.
	n, err := f.client.CountShelf(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(len(rulestest.Catalog())), n)

	require.NoError(t, f.client.DeleteShelf(ctx, first))
	all, err = f.client.ListShelves(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second, all[0].ID)
}

func TestShelfService_CountShelfRejectsUnknownField(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// Saving keeps in-progress trees, so the tree is stored as written.
	id, err := f.client.SaveShelf(ctx, "Sneaky", []byte(`{"join":"and","rules":[
		{"field":"(SELECT COUNT(*) FROM migrations)","operator":"equals","value":1}]}`))
	require.NoError(t, err)

	n, err := f.client.CountShelf(ctx, id)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "unknown field")
	assert.Zero(t, n)
}

func TestRegisterShelfServiceServer_ServiceInfo(t *testing.T) {
	srv := grpc.NewServer()
	api.RegisterShelfServiceServer(srv, &api.ShelfService{})

	info, ok := srv.GetServiceInfo()[api.ServiceName]
	require.True(t, ok)
	names := make([]string, 0, len(info.Methods))
	for _, m := range info.Methods {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"SaveShelf", "GetShelf", "ListShelves", "DeleteShelf", "CountShelf", "CompileFilter"}, names)
	// No .proto file backs the service.
	assert.Nil(t, info.Metadata)
}
