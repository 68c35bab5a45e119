package grpcstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
)

// Client implements storage.Storage[string] over a Storage gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client StorageClient

	// Timeout applies per unary RPC when non-zero.
	Timeout time.Duration
}

var _ storage.Storage[string] = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra is appended to the dial options (custom dialers in tests).
	Extra []grpc.DialOption
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.Extra...)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewStorageClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) GetContext(ctx context.Context, h ident.Hash) (string, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.GetContext(ctx, wrapperspb.String(h.String()))
	if err != nil {
		return "", mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Store(ctx context.Context, rev revision.Revision, branchCtx string) error {
	b, err := json.Marshal(storeRequest{Revision: rev, Context: branchCtx})
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err = c.client.Store(ctx, wrapperspb.Bytes(b))
	return mapRPC(err)
}

func (c *Client) Read(ctx context.Context, h ident.Hash) (revision.Revision, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Read(ctx, wrapperspb.String(h.String()))
	if err != nil {
		return revision.Revision{}, mapRPC(err)
	}
	rev, err := decode[revision.Revision](reply.GetValue())
	if err != nil {
		return revision.Revision{}, fmt.Errorf("grpcstore: decode revision: %w", err)
	}
	if rev.Hash() != h {
		return revision.Revision{}, fmt.Errorf("grpcstore: asked for %s, got %s", h, rev.Hash())
	}
	return rev, nil
}

func (c *Client) GetBranch(ctx context.Context, h ident.Hash) (revision.Branch[string], error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.GetBranch(ctx, wrapperspb.String(h.String()))
	if err != nil {
		return revision.Branch[string]{}, mapRPC(err)
	}
	b, err := decode[revision.Branch[string]](reply.GetValue())
	if err != nil {
		return revision.Branch[string]{}, fmt.Errorf("grpcstore: decode branch: %w", err)
	}
	return b, nil
}

func (c *Client) List(ctx context.Context) ([]ident.Hash, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.List(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, mapRPC(err)
	}
	hashes, err := decode[[]ident.Hash](reply.GetValue())
	if err != nil {
		return nil, fmt.Errorf("grpcstore: decode list: %w", err)
	}
	return hashes, nil
}

// UpdateHandler holds a Subscribe stream open and calls f for each event.
// The per-RPC Timeout does not apply.
func (c *Client) UpdateHandler(ctx context.Context, f storage.UpdateFunc) error {
	stream, err := c.client.Subscribe(ctx, &emptypb.Empty{})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return mapRPC(err)
	}
	for {
		m, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return storage.ErrClosed
			}
			return mapRPC(err)
		}
		ev, err := decode[event](m.GetValue())
		if err != nil {
			return fmt.Errorf("grpcstore: decode event: %w", err)
		}
		f(ev.Hash, ev.Description)
	}
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
