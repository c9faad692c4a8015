package license

// ClientIdentity is the issuer-assigned identity a token is bound to.
// ClientID must match the record's ClientID for any token the Policy
// Engine accepts (§3 invariant). Email is optional and purely advisory
// (see EmbeddedMetadata.EmailHash).
type ClientIdentity struct {
	ClientID   uint32
	ClientName string
	Email      string
}

// FeatureValue is any JSON-representable value a feature key maps to:
// a bool, a number, or a string. Numbers decoded from a token come back
// as json.Number. Keeping this as interface{} (rather
// than a closed sum) matches the wire format, which is a JSON-shaped
// object with no feature-value type constraint beyond JSON's own.
type FeatureValue = interface{}

// IssuanceParameters are the immutable inputs at mint time.
type IssuanceParameters struct {
	ClientID   uint32
	ClientName string
	Email      string // may be empty

	// ExpiresAt is an absolute epoch-second timestamp; zero means never.
	ExpiresAt uint32

	// MaxSeats must be >= 1.
	MaxSeats uint32

	// Features maps short string keys to JSON-representable values.
	Features map[string]FeatureValue
}

// EmbeddedMetadata is what the token carries inside itself.
type EmbeddedMetadata struct {
	ClientID  uint32
	EmailHash string // 8 lowercase hex chars, or "" if email was empty
	Expires   uint32 // epoch seconds, 0 = never
	Issued    uint32 // epoch seconds
	MaxSeats  uint32
	Features  map[string]FeatureValue
}

// TokenRecord is the per-token mutable state owned by the external store.
// The core never constructs a TokenRecord's restriction sets or usage
// counter on its own initiative beyond the single increment ConsumeOnce
// performs on success.
type TokenRecord struct {
	Token    string
	ClientID uint32
	IsActive bool

	// RecordExpiresAt, when non-nil, is the administrative expiry checked
	// by the Policy Engine's rule 2. Issuer.Mint builds no record and never
	// sets this field, and nothing in this package checks it against the
	// token's embedded Expires; Regenerate carries it over unchanged.
	RecordExpiresAt *uint32

	UsageCount uint32
	LastUsed   *uint32

	// HardwareFingerprint, when present, is 64 lowercase hex characters.
	HardwareFingerprint *string

	IPAllowlist   map[string]struct{}
	HostAllowlist map[string]struct{}
}

// ValidationContext carries the caller-supplied facts the Policy Engine
// checks a decoded token and record against.
type ValidationContext struct {
	Now                 uint32
	IP                  string
	Host                string
	HardwareFingerprint string

	// ClockSkewSeconds is the tolerance applied to the §3 invariant
	// "issued <= now + skew": it absorbs clock drift between the host
	// that minted a token and the host validating it. Set by the Issuer
	// from its configured skew before Evaluate runs; callers driving
	// Evaluate directly may set it themselves.
	ClockSkewSeconds uint32
}

// VerdictKind is the closed sum of outcomes the Policy Engine and Token
// Codec can produce. See §6 and §7 of the specification.
type VerdictKind string

const (
	KindValid             VerdictKind = "Valid"
	KindInactive          VerdictKind = "Inactive"
	KindRecordExpired     VerdictKind = "RecordExpired"
	KindTokenExpired      VerdictKind = "TokenExpired"
	KindClientMismatch    VerdictKind = "ClientMismatch"
	KindIPNotAuthorized   VerdictKind = "IpNotAuthorized"
	KindHostNotAuthorized VerdictKind = "HostNotAuthorized"
	KindHardwareMismatch  VerdictKind = "HardwareMismatch"
	KindSeatsExhausted    VerdictKind = "SeatsExhausted"
	KindMalformedFraming  VerdictKind = "MalformedFraming"
	KindChecksumFailed    VerdictKind = "ChecksumFailed"
	KindSignatureFailed   VerdictKind = "SignatureFailed"
	KindMalformedMetadata VerdictKind = "MalformedMetadata"
	KindUnknownVersion    VerdictKind = "UnknownVersion"
	KindRecordNotFound    VerdictKind = "RecordNotFound"

	// KindClockSkewExceeded is a supplement to the original closed sum
	// (see the types.go row in DESIGN.md): the §3 invariant "issued <= now + skew" was
	// previously unenforced anywhere in the Policy Engine. Rejected here
	// rather than silently accepted, since a token whose issued_ts is
	// further in the future than the configured tolerance allows is
	// either forged or was minted by a host with a badly wrong clock.
	KindClockSkewExceeded VerdictKind = "ClockSkewExceeded"
)

// verdictMessages holds the exact human-readable strings the spec (§7)
// requires callers be able to rely on for direct display.
var verdictMessages = map[VerdictKind]string{
	KindValid:            "License is valid",
	KindInactive:         "License is inactive",
	KindRecordExpired:    "License has expired",
	KindTokenExpired:     "License key has expired",
	KindClientMismatch:   "License key client mismatch",
	KindIPNotAuthorized:  "IP address not authorized",
	KindHostNotAuthorized: "Domain not authorized",
	KindHardwareMismatch: "Hardware fingerprint mismatch",
	KindSeatsExhausted:   "Maximum usage limit exceeded",
	KindMalformedFraming: "Invalid license key format",
	KindChecksumFailed:   "License key checksum validation failed",
	KindSignatureFailed:  "License key signature validation failed",
	KindMalformedMetadata: "Failed to parse license key metadata",
	KindUnknownVersion:   "Unsupported license key version",
	KindRecordNotFound:   "License not found",
	KindClockSkewExceeded: "License key issued timestamp exceeds allowed clock skew",
}

// Verdict is the tagged value the Policy Engine and Issuer produce:
// either Valid (with the seats remaining after this check) or a
// Rejection carrying the specific kind and its stable message.
type Verdict struct {
	Kind            VerdictKind
	Message         string
	RemainingSeats  uint32
}

// Valid reports whether this verdict represents a successful validation.
func (v Verdict) Valid() bool {
	return v.Kind == KindValid
}

func valid(remaining uint32) Verdict {
	return Verdict{Kind: KindValid, Message: verdictMessages[KindValid], RemainingSeats: remaining}
}

func rejection(kind VerdictKind) Verdict {
	return Verdict{Kind: kind, Message: verdictMessages[kind]}
}
