package grpcstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/storage"
)

// Server exposes a storage.Storage over the Storage gRPC service.
type Server struct {
	UnimplementedStorageServer
	Storage storage.Storage[string]

	// Logger receives write and subscription events. Nil uses slog.Default().
	Logger *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) ready() error {
	if s == nil || s.Storage == nil {
		return status.Error(codes.FailedPrecondition, "missing storage")
	}
	return nil
}

func parseHash(in *wrapperspb.StringValue) (ident.Hash, error) {
	h, err := ident.ParseHash(in.GetValue())
	if err != nil {
		return ident.Hash{}, invalidArgument("%v", err)
	}
	return h, nil
}

func (s *Server) GetContext(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	h, err := parseHash(in)
	if err != nil {
		return nil, err
	}
	c, err := s.Storage.GetContext(ctx, h)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(c), nil
}

func (s *Server) Store(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	req, err := decode[storeRequest](in.GetValue())
	if err != nil {
		return nil, invalidArgument("decode store request: %v", err)
	}
	h := req.Revision.Hash()
	if err := s.Storage.Store(ctx, req.Revision, req.Context); err != nil {
		s.logger().Warn("store rejected", "hash", h, "error", err)
		return nil, mapErr(err)
	}
	s.logger().Info("revision stored", "hash", h, "event", storage.Describe(req.Revision))
	return &emptypb.Empty{}, nil
}

func (s *Server) Read(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	h, err := parseHash(in)
	if err != nil {
		return nil, err
	}
	rev, err := s.Storage.Read(ctx, h)
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := json.Marshal(rev)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) GetBranch(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	h, err := parseHash(in)
	if err != nil {
		return nil, err
	}
	branch, err := s.Storage.GetBranch(ctx, h)
	if err != nil {
		return nil, mapErr(err)
	}
	b, err := json.Marshal(branch)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) List(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	hashes, err := s.Storage.List(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	if hashes == nil {
		hashes = []ident.Hash{}
	}
	b, err := json.Marshal(hashes)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(b), nil
}

// Subscribe streams store events until the client goes away or the backend
// ends the subscription.
func (s *Server) Subscribe(_ *emptypb.Empty, stream Storage_SubscribeServer) error {
	if err := s.ready(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	log := s.logger().With("subscription", uuid.NewString())
	log.Info("subscription opened")

	var (
		mu      sync.Mutex
		sendErr error
	)
	err := s.Storage.UpdateHandler(ctx, func(h ident.Hash, desc string) {
		mu.Lock()
		defer mu.Unlock()
		if sendErr != nil {
			return
		}
		b, err := json.Marshal(event{Hash: h, Description: desc})
		if err == nil {
			err = stream.Send(wrapperspb.Bytes(b))
		}
		if err != nil {
			sendErr = err
			cancel()
		}
	})
	mu.Lock()
	defer mu.Unlock()
	if sendErr != nil {
		log.Info("subscription closed", "error", sendErr)
		return sendErr
	}
	log.Info("subscription closed", "reason", err)
	return mapErr(err)
}
