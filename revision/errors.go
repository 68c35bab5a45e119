package revision

import "errors"

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindInvalidBase64            Kind = "InvalidBase64"
	KindInvalidTimestamp         Kind = "InvalidTimestamp"
	KindSizeMismatch             Kind = "SizeMismatch"
	KindFileHashMismatch         Kind = "FileHashMismatch"
	KindContentHashMismatch      Kind = "ContentHashMismatch"
	KindMetadataHashMismatch     Kind = "MetadataHashMismatch"
	KindVerificationHashMismatch Kind = "VerificationHashMismatch"
	KindLinkage                  Kind = "Linkage"
	KindSignedHashMismatch       Kind = "SignedHashMismatch"
	KindAddressMismatch          Kind = "AddressMismatch"
	KindSignatureMismatch        Kind = "SignatureMismatch"
	KindWitnessInvalid           Kind = "WitnessInvalid"
	KindEmptyBranch              Kind = "EmptyBranch"
)

var ruleIDs = map[Kind]string{
	KindInvalidBase64:            "AQUA-REV-001",
	KindInvalidTimestamp:         "AQUA-REV-002",
	KindSizeMismatch:             "AQUA-REV-003",
	KindFileHashMismatch:         "AQUA-REV-004",
	KindContentHashMismatch:      "AQUA-REV-005",
	KindMetadataHashMismatch:     "AQUA-REV-006",
	KindVerificationHashMismatch: "AQUA-REV-007",
	KindLinkage:                  "AQUA-REV-008",
	KindSignedHashMismatch:       "AQUA-REV-009",
	KindAddressMismatch:          "AQUA-REV-010",
	KindSignatureMismatch:        "AQUA-REV-011",
	KindWitnessInvalid:           "AQUA-REV-012",
	KindEmptyBranch:              "AQUA-REV-013",
}

// RuleID returns the stable rule identifier for k.
func (k Kind) RuleID() string { return ruleIDs[k] }

// Error is a structured revision validation error.
//
// Message is intended for humans; callers should branch on Kind or RuleID.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return "revision: " + e.Message + ": " + e.Cause.Error()
	}
	return "revision: " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, msg string) error {
	return &Error{Kind: kind, RuleID: ruleIDs[kind], Message: msg}
}

func wrapError(kind Kind, msg string, cause error) error {
	if cause == nil {
		return newError(kind, msg)
	}
	return &Error{Kind: kind, RuleID: ruleIDs[kind], Message: msg, Cause: cause}
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
