package model

import (
	"errors"
	"fmt"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
)

type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrInvalidIdentifier  ErrorCode = "INVALID_IDENTIFIER"
	ErrVerificationFailed ErrorCode = "VERIFICATION_FAILED"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrConflict           ErrorCode = "CONFLICT"
	ErrImmutable          ErrorCode = "IMMUTABLE"
	ErrUnavailable        ErrorCode = "UNAVAILABLE"
	ErrInternal           ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	RuleID  string    `json:"ruleID,omitempty"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.RuleID != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.RuleID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// FromError classifies err for a boundary layer. It returns nil for nil.
func FromError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded
	}

	out := &CodedError{Code: ErrInternal, Message: err.Error()}
	var identErr *ident.Error
	var revErr *revision.Error
	switch {
	case errors.As(err, &revErr):
		out.Code, out.RuleID = ErrVerificationFailed, revErr.RuleID
	case errors.As(err, &identErr):
		out.Code, out.RuleID = ErrInvalidIdentifier, identErr.RuleID
	case errors.Is(err, storage.ErrNotFound):
		out.Code = ErrNotFound
	case errors.Is(err, storage.ErrConflict):
		out.Code = ErrConflict
	case errors.Is(err, storage.ErrImmutable):
		out.Code = ErrImmutable
	case errors.Is(err, storage.ErrInvalidContext):
		out.Code = ErrInvalidRequest
	case errors.Is(err, storage.ErrClosed):
		out.Code = ErrUnavailable
	}
	return out
}
