package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"netsimplex/pkg/apperror"
	"netsimplex/pkg/config"
	"netsimplex/pkg/simplexapi"
)

// SimplexClient клиент для simplex-svc
type SimplexClient struct {
	conn   *grpc.ClientConn
	client simplexapi.SimplexServiceClient
}

// NewSimplexClient подключается к сервису по адресу из cfg
func NewSimplexClient(ctx context.Context, cfg config.ClientConfig, extra ...grpc.DialOption) (*SimplexClient, error) {
	conn, err := NewGRPCClient(ctx, cfg, extra...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to simplex service: %w", err)
	}
	return &SimplexClient{
		conn:   conn,
		client: simplexapi.NewSimplexServiceClient(conn),
	}, nil
}

// Close закрывает соединение
func (c *SimplexClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Run запускает ядро на сервере
func (c *SimplexClient) Run(ctx context.Context, req *simplexapi.RunRequest) (*simplexapi.RunResponse, error) {
	resp, err := c.client.RunKernel(ctx, req)
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp, nil
}

// GetRun возвращает сохранённый прогон
func (c *SimplexClient) GetRun(ctx context.Context, runID string) (*simplexapi.RunResponse, error) {
	resp, err := c.client.GetRun(ctx, runID)
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp, nil
}

// ListRuns возвращает страницу истории прогонов
func (c *SimplexClient) ListRuns(ctx context.Context, req *simplexapi.ListRunsRequest) (*simplexapi.ListRunsResponse, error) {
	resp, err := c.client.ListRuns(ctx, req)
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp, nil
}

// ExportTrace возвращает xlsx отчёт по трассе пивотов
func (c *SimplexClient) ExportTrace(ctx context.Context, req *simplexapi.RunRequest) ([]byte, error) {
	data, err := c.client.ExportTrace(ctx, req)
	if err != nil {
		return nil, fromStatus(err)
	}
	return data, nil
}

// Verify прогоняет ядро с проверкой инвариантов дерева после каждого пивота
func (c *SimplexClient) Verify(ctx context.Context, req *simplexapi.RunRequest) (*simplexapi.VerifyResponse, error) {
	resp, err := c.client.VerifyRun(ctx, req)
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp, nil
}

// fromStatus восстанавливает apperror из статуса
func fromStatus(err error) error {
	appErr := apperror.FromGRPC(err)
	appErr.Cause = err
	return appErr
}
