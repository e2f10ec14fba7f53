// Package client dials a remote simplex-svc.
package client

import (
	"context"
	"crypto/tls"
	"time"

	grpc_retry "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"netsimplex/pkg/config"
)

// maxMessageSize с запасом под трассу и xlsx
const maxMessageSize = 64 << 20

// NewGRPCClient создает соединение с Retry и Timeout
func NewGRPCClient(_ context.Context, cfg config.ClientConfig, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	opts := []grpc_retry.CallOption{
		grpc_retry.WithBackoff(grpc_retry.BackoffLinear(backoff)),
		grpc_retry.WithCodes(codes.Unavailable, codes.Aborted),
		grpc_retry.WithMax(uint(retries)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, grpc_retry.WithPerRetryTimeout(cfg.Timeout))
	}

	creds := insecure.NewCredentials()
	if cfg.TLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMessageSize),
			grpc.MaxCallSendMsgSize(maxMessageSize),
		),
		grpc.WithChainUnaryInterceptor(
			grpc_retry.UnaryClientInterceptor(opts...),
		),
		grpc.WithChainStreamInterceptor(
			grpc_retry.StreamClientInterceptor(opts...),
		),
	}
	dialOpts = append(dialOpts, extra...)

	return grpc.NewClient(cfg.Address(), dialOpts...)
}
