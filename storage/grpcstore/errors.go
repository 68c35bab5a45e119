package grpcstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/aqua/storage"
)

// Storage sentinels and the status codes they travel as. The status message
// is the error text, which starts with the sentinel's text.
var sentinels = []struct {
	err  error
	code codes.Code
}{
	{storage.ErrNotFound, codes.NotFound},
	{storage.ErrConflict, codes.FailedPrecondition},
	{storage.ErrImmutable, codes.AlreadyExists},
	{storage.ErrInvalidContext, codes.InvalidArgument},
	{storage.ErrClosed, codes.Unavailable},
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return status.Error(s.code, err.Error())
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, s := range sentinels {
		if st.Code() != s.code {
			continue
		}
		msg := st.Message()
		if rest, ok := strings.CutPrefix(msg, s.err.Error()); ok {
			if rest == "" {
				return s.err
			}
			return fmt.Errorf("%w%s", s.err, rest)
		}
		if s.err == storage.ErrNotFound {
			return fmt.Errorf("%w: %s", s.err, msg)
		}
	}
	return err
}

func invalidArgument(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}
