package license

import "errors"

// Sentinel errors returned by the Binary Layout Codec and Token Codec.
// These are structural failures: the token is not authentic. See
// VerdictKind for the corresponding tagged verdict surfaced to callers.
var (
	// ErrMalformedFraming indicates the textual token failed prefix,
	// grouping, or Base32 decoding.
	ErrMalformedFraming = errors.New("malformed token framing")

	// ErrMalformedLayout indicates the decoded byte payload is shorter
	// than the minimum layout size or has an empty variable region.
	ErrMalformedLayout = errors.New("malformed token layout")

	// ErrUnknownVersion indicates the layout version byte is not one
	// this codec understands.
	ErrUnknownVersion = errors.New("unknown token version")

	// ErrChecksumFailed indicates the CRC-32 checksum does not match.
	ErrChecksumFailed = errors.New("token checksum validation failed")

	// ErrSignatureFailed indicates the HMAC-SHA-256 MAC does not match.
	ErrSignatureFailed = errors.New("token signature validation failed")

	// ErrMalformedMetadata indicates the compressed metadata failed to
	// decompress or did not have the expected shape.
	ErrMalformedMetadata = errors.New("malformed token metadata")

	// ErrRecordNotFound indicates the TokenRecordStore has no record for
	// the given token string.
	ErrRecordNotFound = errors.New("license record not found")

	// ErrDuplicateToken indicates an insert collided with an existing
	// token string (should never happen under correct BulkMint use).
	ErrDuplicateToken = errors.New("duplicate license token")
)

// ValidationError wraps one of the structural sentinel errors above with
// the VerdictKind it maps to and that kind's message. Issuer.Regenerate
// returns it when the record's current token fails to decode.
type ValidationError struct {
	Kind    VerdictKind
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(kind VerdictKind, msg string, cause error) *ValidationError {
	return &ValidationError{Kind: kind, Message: msg, Err: cause}
}
