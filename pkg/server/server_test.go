package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"netsimplex/pkg/config"
	"netsimplex/pkg/logger"
)

func init() {
	logger.Init("error")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "test-app", Environment: "test"},
		GRPC: config.GRPCConfig{
			Port:            50051,
			KeepAlive:       config.KeepAliveConfig{},
			ShutdownTimeout: time.Second,
		},
	}
}

func TestNewServer(t *testing.T) {
	srv, err := New(testConfig())
	require.NoError(t, err)
	assert.NotNil(t, srv)
	assert.NotNil(t, srv.GetEngine())
}

func TestNewServer_MissingTLSFiles(t *testing.T) {
	cfg := testConfig()
	cfg.GRPC.TLS = config.TLSConfig{Enabled: true, CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key"}

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestServe_HealthAndShutdownHooks(t *testing.T) {
	srv, err := New(testConfig())
	require.NoError(t, err)

	var closed []string
	srv.OnShutdown("first", func(context.Context) error {
		closed = append(closed, "first")
		return nil
	})
	srv.OnShutdown("second", func(context.Context) error {
		closed = append(closed, "second")
		return nil
	})

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	healthClient := grpc_health_v1.NewHealthClient(conn)
	require.Eventually(t, func() bool {
		resp, err := healthClient.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: "test-app"})
		return err == nil && resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	assert.Equal(t, []string{"second", "first"}, closed)
}
