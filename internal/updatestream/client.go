package updatestream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// serviceMethod is the full gRPC method name of the single server-streaming
// RPC this client calls. There is no compiled protobuf stub behind it
// (see codec.go); the method name is all grpc.ClientConn.NewStream needs.
const serviceMethod = "/assetcatalog.updatestream.v1.BlockchainUpdates/Subscribe"

var streamDesc = grpc.StreamDesc{
	StreamName:    "Subscribe",
	ServerStreams: true,
}

// Dial opens a gRPC connection to the blockchain-updates service with
// reconnect-with-backoff matching the "restartable asynchronous pull"
// contract of spec §4.1.
func Dial(ctx context.Context, target string) (*grpc.ClientConn, error) {
	return grpc.DialContext(ctx, target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
}

// subscribeRequest is the wire shape of a Subscribe call (spec §4.1
// parameters: from_height, batch_max_size, batch_max_time).
type subscribeRequest struct {
	FromHeight       int32 `json:"fromHeight"`
	BatchMaxSize     int32 `json:"batchMaxSize"`
	BatchMaxTimeMs   int64 `json:"batchMaxTimeMs"`
}

// GRPCSource is the concrete Source binding over gRPC (SPEC_FULL.md §D.1).
type GRPCSource struct {
	conn   *grpc.ClientConn
	stream grpc.ClientStream
	cancel context.CancelFunc
}

// NewGRPCSource opens the Subscribe stream against conn starting at
// opts.FromHeight.
func NewGRPCSource(ctx context.Context, conn *grpc.ClientConn, opts SubscribeOptions) (*GRPCSource, error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := conn.NewStream(ctx, &streamDesc, serviceMethod)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("updatestream: opening subscribe stream: %w", err)
	}

	req := subscribeRequest{
		FromHeight:     opts.FromHeight,
		BatchMaxSize:   int32(opts.BatchMaxSize),
		BatchMaxTimeMs: opts.BatchMaxTime.Milliseconds(),
	}
	if err := stream.SendMsg(&req); err != nil {
		cancel()
		return nil, fmt.Errorf("updatestream: sending subscribe request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, fmt.Errorf("updatestream: closing subscribe request: %w", err)
	}

	return &GRPCSource{conn: conn, stream: stream, cancel: cancel}, nil
}

// Recv implements Source.
func (s *GRPCSource) Recv(ctx context.Context) (BatchWithLastHeight, error) {
	var w wireBatch
	err := s.stream.RecvMsg(&w)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return BatchWithLastHeight{}, ErrStreamClosed
		}
		if st, ok := status.FromError(err); ok {
			switch st.Code() {
			case codes.Unavailable, codes.Canceled, codes.Aborted:
				return BatchWithLastHeight{}, fmt.Errorf("%w: %s", ErrStreamClosed, st.Message())
			}
		}
		return BatchWithLastHeight{}, fmt.Errorf("updatestream: recv: %w", err)
	}
	return fromWireBatch(w)
}

// Close implements Source.
func (s *GRPCSource) Close() error {
	s.cancel()
	return s.conn.Close()
}

var _ Source = (*GRPCSource)(nil)

// MemorySource is an in-memory Source used by tests: it replays a fixed
// list of batches, then returns ErrStreamClosed.
type MemorySource struct {
	batches []BatchWithLastHeight
	pos     int
	delay   time.Duration
}

// NewMemorySource builds a MemorySource that replays batches in order.
func NewMemorySource(batches ...BatchWithLastHeight) *MemorySource {
	return &MemorySource{batches: batches}
}

func (m *MemorySource) Recv(ctx context.Context) (BatchWithLastHeight, error) {
	if m.pos >= len(m.batches) {
		return BatchWithLastHeight{}, ErrStreamClosed
	}
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return BatchWithLastHeight{}, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	b := m.batches[m.pos]
	m.pos++
	return b, nil
}

func (m *MemorySource) Close() error { return nil }

var _ Source = (*MemorySource)(nil)
