package grpcstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/memstore"
	"xdao.co/aqua/storage/testkit"
)

// serve starts a server over backend and returns a connected client.
func serve(t *testing.T, backend storage.Storage[string]) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterStorageServer(srv, &Server{Storage: backend})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial("bufnet", DialOptions{Extra: []grpc.DialOption{grpc.WithContextDialer(dialer)}})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Timeout = 5 * time.Second
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newMemBackend(t *testing.T) storage.Storage[string] {
	t.Helper()
	m := memstore.New()
	t.Cleanup(func() { _ = m.Close() })
	return storage.Encode[ident.Hash](m, storage.HashCodec{})
}

func TestGRPCStore_Conformance(t *testing.T) {
	testkit.RunStorageConformance(t, func(t *testing.T) storage.Storage[string] {
		return serve(t, newMemBackend(t))
	})
}

func TestGRPCStore_ErrorsKeepSentinels(t *testing.T) {
	client := serve(t, newMemBackend(t))
	ctx := context.Background()
	revs := testkit.Chain(t, "errors", 2)
	if err := client.Store(ctx, revs[0], ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	c, err := client.GetContext(ctx, revs[0].Hash())
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if c != revs[0].Hash().String() {
		t.Fatalf("context %q, want genesis hash", c)
	}

	if _, err := client.Read(ctx, ident.Sum([]byte("absent"))); err != storage.ErrNotFound {
		t.Fatalf("Read missing: got %v want ErrNotFound", err)
	}
	fork := testkit.Child(revs[0], "fork")
	if err := client.Store(ctx, revs[1], c); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := client.Store(ctx, fork, c); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("Store fork: got %v want ErrConflict", err)
	}
	if err := client.Store(ctx, revs[1], "not-a-hash"); !errors.Is(err, storage.ErrInvalidContext) {
		t.Fatalf("Store bad context: got %v want ErrInvalidContext", err)
	}
}

func TestServer_RejectsMalformedRequests(t *testing.T) {
	client := serve(t, newMemBackend(t))
	ctx := context.Background()

	_, err := client.client.Read(ctx, wrapperspb.String("ABC"))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("Read bad hash: got %v want InvalidArgument", err)
	}
	_, err = client.client.Store(ctx, wrapperspb.Bytes([]byte("{not json")))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("Store bad body: got %v want InvalidArgument", err)
	}
}

func TestServer_MissingStorage(t *testing.T) {
	var s *Server
	if _, err := s.List(context.Background(), nil); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("got %v want FailedPrecondition", err)
	}
}

func TestMapRPC_RoundTrip(t *testing.T) {
	for _, want := range []error{storage.ErrNotFound, storage.ErrConflict, storage.ErrImmutable, storage.ErrInvalidContext, storage.ErrClosed} {
		if got := mapRPC(mapErr(want)); got != want {
			t.Fatalf("round trip of %v gave %v", want, got)
		}
	}
	wrapped := mapRPC(mapErr(fmt.Errorf("%w: tail moved", storage.ErrConflict)))
	if !errors.Is(wrapped, storage.ErrConflict) {
		t.Fatalf("wrapped conflict lost its sentinel: %v", wrapped)
	}
	if got := mapRPC(mapErr(context.Canceled)); status.Code(got) != codes.Canceled {
		t.Fatalf("context.Canceled mapped to %v", got)
	}
}
