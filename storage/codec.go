package storage

import (
	"context"
	"fmt"
	"strconv"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
)

// ContextCodec converts a backend context to and from a string so the backend
// can sit behind string-typed boundaries (RPC, configuration, CLI).
type ContextCodec[C any] interface {
	EncodeContext(c C) (string, error)
	DecodeContext(s string) (C, error)
}

// HashCodec encodes genesis-hash contexts as their canonical string.
type HashCodec struct{}

func (HashCodec) EncodeContext(c ident.Hash) (string, error) { return c.String(), nil }

func (HashCodec) DecodeContext(s string) (ident.Hash, error) {
	if s == "" {
		return ident.Hash{}, nil
	}
	return ident.ParseHash(s)
}

// Int64Codec encodes integer row-id contexts in base 10.
type Int64Codec struct{}

func (Int64Codec) EncodeContext(c int64) (string, error) { return strconv.FormatInt(c, 10), nil }

func (Int64Codec) DecodeContext(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// Encode adapts s to string contexts using codec. The empty string decodes
// to the zero context, which is what Store expects for genesis revisions.
func Encode[C any](s Storage[C], codec ContextCodec[C]) Storage[string] {
	return &encoded[C]{inner: s, codec: codec}
}

type encoded[C any] struct {
	inner Storage[C]
	codec ContextCodec[C]
}

func (e *encoded[C]) GetContext(ctx context.Context, h ident.Hash) (string, error) {
	c, err := e.inner.GetContext(ctx, h)
	if err != nil {
		return "", err
	}
	return e.codec.EncodeContext(c)
}

func (e *encoded[C]) Store(ctx context.Context, rev revision.Revision, s string) error {
	c, err := e.codec.DecodeContext(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	return e.inner.Store(ctx, rev, c)
}

func (e *encoded[C]) Read(ctx context.Context, h ident.Hash) (revision.Revision, error) {
	return e.inner.Read(ctx, h)
}

func (e *encoded[C]) GetBranch(ctx context.Context, h ident.Hash) (revision.Branch[string], error) {
	b, err := e.inner.GetBranch(ctx, h)
	if err != nil {
		return revision.Branch[string]{}, err
	}
	s, err := e.codec.EncodeContext(b.Metadata)
	if err != nil {
		return revision.Branch[string]{}, err
	}
	return revision.WithMetadata(b, s), nil
}

func (e *encoded[C]) List(ctx context.Context) ([]ident.Hash, error) {
	return e.inner.List(ctx)
}

func (e *encoded[C]) UpdateHandler(ctx context.Context, f UpdateFunc) error {
	return e.inner.UpdateHandler(ctx, f)
}

// Unwrap returns the adapted backend.
func (e *encoded[C]) Unwrap() Storage[C] { return e.inner }
