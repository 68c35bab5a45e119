package ident

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind (or RuleID) rather than matching error
// strings. Every Kind is a deterministic rejection of malformed input and
// must not be retried.
type Kind string

const (
	KindNotLowercase             Kind = "NotLowercase"
	KindUnexpectedPrefix         Kind = "UnexpectedPrefix"
	KindMissingPrefix            Kind = "MissingPrefix"
	KindWrongLength              Kind = "WrongLength"
	KindInvalidHex               Kind = "InvalidHex"
	KindInvalidCurvePoint        Kind = "InvalidCurvePoint"
	KindInvalidRecoveryID        Kind = "InvalidRecoveryId"
	KindInvalidSignatureEncoding Kind = "InvalidSignatureEncoding"
	KindInvalidChecksum          Kind = "InvalidChecksum"
)

var ruleIDs = map[Kind]string{
	KindNotLowercase:             "AQUA-ID-001",
	KindUnexpectedPrefix:         "AQUA-ID-002",
	KindMissingPrefix:            "AQUA-ID-003",
	KindWrongLength:              "AQUA-ID-004",
	KindInvalidHex:               "AQUA-ID-005",
	KindInvalidCurvePoint:        "AQUA-ID-006",
	KindInvalidRecoveryID:        "AQUA-ID-007",
	KindInvalidSignatureEncoding: "AQUA-ID-008",
	KindInvalidChecksum:          "AQUA-ID-009",
}

// Error is the structured parse error returned by every ParseX function.
//
// Type names the identifier being parsed ("hash", "tx hash", "public key",
// "signature", "address"). Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Type    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "ident: " + e.Type + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, typ, msg string) error {
	return &Error{Kind: kind, RuleID: ruleIDs[kind], Type: typ, Message: msg}
}

func wrapError(kind Kind, typ, msg string, cause error) error {
	if cause == nil {
		return newError(kind, typ, msg)
	}
	return &Error{Kind: kind, RuleID: ruleIDs[kind], Type: typ, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
