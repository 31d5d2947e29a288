package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/shelfkeeper/internal/core/api"
	"github.com/solatis/shelfkeeper/internal/core/config"
)

// stubService answers CountShelf and fails everything else.
type stubService struct {
	delay time.Duration
}

func (s stubService) SaveShelf(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "stub")
}

func (s stubService) GetShelf(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "stub")
}

func (s stubService) ListShelves(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "stub")
}

func (s stubService) DeleteShelf(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "stub")
}

func (s stubService) CountShelf(ctx context.Context, _ *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	select {
	case <-time.After(s.delay):
		return wrapperspb.Int64(7), nil
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}
}

func (s stubService) CompileFilter(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "stub")
}

func start(t *testing.T, cfg config.ServerConfig, svc api.ShelfServiceServer, logger *zap.Logger) (*GRPCServer, *grpc.ClientConn) {
	t.Helper()

	srv, err := NewGRPCServer(cfg, svc, logger)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })
	return srv, cc
}

func TestNewGRPCServer_RequiresService(t *testing.T) {
	_, err := NewGRPCServer(config.DefaultConfig().Server, nil, nil)
	require.Error(t, err)
}

func TestGRPCServer_HealthAndLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	srv, cc := start(t, config.DefaultConfig().Server, stubService{}, zap.New(core))
	ctx := context.Background()

	health := grpc_health_v1.NewHealthClient(cc)
	resp, err := health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: api.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())

	client := api.NewClient(cc)
	n, err := client.CountShelf(ctx, "0190c9e6-7a43-7d4e-8a51-3f2a9a1d0b55")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	_, err = client.GetShelf(ctx, "0190c9e6-7a43-7d4e-8a51-3f2a9a1d0b55")
	require.Error(t, err)

	calls := logs.FilterField(zap.String("method", "/shelfkeeper.v1.ShelfService/CountShelf")).All()
	require.Len(t, calls, 1)
	assert.Equal(t, zapcore.DebugLevel, calls[0].Level)

	failed := logs.FilterMessage("call failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "Unimplemented", failed[0].ContextMap()["code"])

	require.NoError(t, srv.Shutdown(ctx))
}

func TestGRPCServer_RequestTimeout(t *testing.T) {
	cfg := config.DefaultConfig().Server
	cfg.RequestTimeout = 20 * time.Millisecond
	_, cc := start(t, cfg, stubService{delay: time.Second}, nil)

	_, err := api.NewClient(cc).CountShelf(context.Background(), "0190c9e6-7a43-7d4e-8a51-3f2a9a1d0b55")
	require.Error(t, err)
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestTimeoutInterceptor_Disabled(t *testing.T) {
	interceptor := TimeoutInterceptor(0)
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, _ any) (any, error) {
		_, ok := ctx.Deadline()
		assert.False(t, ok)
		return nil, nil
	})
	require.NoError(t, err)
}
