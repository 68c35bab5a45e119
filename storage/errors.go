package storage

import "errors"

var (
	ErrNotFound       = errors.New("storage: not found")
	ErrConflict       = errors.New("storage: conflicting append")
	ErrImmutable      = errors.New("storage: immutable object mismatch")
	ErrInvalidContext = errors.New("storage: invalid context")
	ErrClosed         = errors.New("storage: closed")
	ErrInvalidCID     = errors.New("storage: invalid cid")
	ErrCIDMismatch    = errors.New("storage: cid mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
