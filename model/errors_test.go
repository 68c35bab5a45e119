package model

import (
	"errors"
	"fmt"
	"testing"

	"xdao.co/aqua/ident"
	"xdao.co/aqua/revision"
	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/testkit"
)

func TestFromError(t *testing.T) {
	_, identErr := ident.ParseHash("0xABC")
	if identErr == nil {
		t.Fatalf("expected ParseHash error")
	}
	revs := testkit.Chain(t, "page", 2)
	revErr := revision.VerifyChain(revs[1:])
	if revErr == nil {
		t.Fatalf("expected VerifyChain error")
	}

	cases := []struct {
		name   string
		err    error
		code   ErrorCode
		ruleID bool
	}{
		{"ident", identErr, ErrInvalidIdentifier, true},
		{"revision", revErr, ErrVerificationFailed, true},
		{"not found", fmt.Errorf("read: %w", storage.ErrNotFound), ErrNotFound, false},
		{"conflict", storage.ErrConflict, ErrConflict, false},
		{"immutable", storage.ErrImmutable, ErrImmutable, false},
		{"invalid context", storage.ErrInvalidContext, ErrInvalidRequest, false},
		{"closed", storage.ErrClosed, ErrUnavailable, false},
		{"other", errors.New("boom"), ErrInternal, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromError(tc.err)
			if got.Code != tc.code {
				t.Fatalf("code = %s, want %s", got.Code, tc.code)
			}
			if tc.ruleID && got.RuleID == "" {
				t.Fatalf("missing rule id for %v", tc.err)
			}
			if got.Message != tc.err.Error() {
				t.Fatalf("message = %q", got.Message)
			}
		})
	}

	if FromError(nil) != nil {
		t.Fatalf("FromError(nil) should be nil")
	}
	coded := NewError(ErrInvalidRequest, "bad")
	if FromError(fmt.Errorf("wrap: %w", coded)) != coded {
		t.Fatalf("CodedError should pass through")
	}
}
