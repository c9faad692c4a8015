package license

import (
	"context"
	"crypto/md5" //nolint:gosec // email_hash is an 8-hex advisory fingerprint, not a security boundary (§3, §9).
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Issuer is the only component that holds the signing secret on write
// paths (§4.5). It composes the Metadata Serializer, Binary Layout
// Codec, and Token Codec for minting, and the Policy Engine for
// consumption, serializing the load/validate/store triple per record as
// §5 requires.
type Issuer struct {
	secret signingSecret
	store  TokenRecordStore
	clock  Clock
	logger *logrus.Logger

	// clockSkew is the §6 clock_skew_tolerance_seconds configuration
	// value (default 0), applied to every Validate/ConsumeOnce call as
	// ValidationContext.ClockSkewSeconds.
	clockSkew uint32

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewIssuer constructs an Issuer with no clock skew tolerance. secret
// should be at least 32 bytes (§6); logger may be nil, in which case a
// no-op logger is used. Use SetClockSkew to configure §6's
// clock_skew_tolerance_seconds.
func NewIssuer(secret []byte, store TokenRecordStore, clock Clock, logger *logrus.Logger) *Issuer {
	if logger == nil {
		logger = silentLogger()
	}
	return &Issuer{
		secret: append([]byte(nil), secret...),
		store:  store,
		clock:  clock,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetClockSkew configures the tolerance applied to the §3 invariant
// "issued <= now + skew" on every subsequent Validate/ConsumeOnce call,
// matching §6's clock_skew_tolerance_seconds configuration value.
func (iss *Issuer) SetClockSkew(seconds uint32) {
	iss.clockSkew = seconds
}

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel + 1) // FatalLevel: only fatal/panic entries pass, and the Issuer logs neither
	return l
}

// lockFor returns the per-token mutex used to serialize ConsumeOnce
// against itself for a given token, per §5's linearizability requirement.
// Different tokens proceed independently.
func (iss *Issuer) lockFor(token string) *sync.Mutex {
	iss.locksMu.Lock()
	defer iss.locksMu.Unlock()

	m, ok := iss.locks[token]
	if !ok {
		m = &sync.Mutex{}
		iss.locks[token] = m
	}
	return m
}

// buildMetadata assembles an EmbeddedMetadata from issuance parameters
// and an issued timestamp, matching the original's metadata dict layout
// (models.py::generate_advanced_license_key).
func buildMetadata(params IssuanceParameters, issuedTS uint32) EmbeddedMetadata {
	return EmbeddedMetadata{
		ClientID:  params.ClientID,
		EmailHash: emailHash(params.Email),
		Expires:   params.ExpiresAt,
		Issued:    issuedTS,
		MaxSeats:  params.MaxSeats,
		Features:  params.Features,
	}
}

// emailHash is the first 8 hex characters (32 bits, as the original's
// md5(...).hexdigest()[:8]) of the MD5 digest of the email, or "" if
// email is empty. Forensic only; never
// read by the Policy Engine (§9).
func emailHash(email string) string {
	if email == "" {
		return ""
	}
	sum := md5.Sum([]byte(email)) //nolint:gosec
	return hex.EncodeToString(sum[:])[:8]
}

// Mint computes issued_ts from the clock, builds and signs the token,
// and returns it without persisting: the caller hands the result to the
// record store (§4.5).
func (iss *Issuer) Mint(params IssuanceParameters) (string, EmbeddedMetadata, error) {
	if params.MaxSeats == 0 {
		return "", EmbeddedMetadata{}, fmt.Errorf("license: max seats must be >= 1")
	}

	issuedTS := iss.clock.Now()
	return iss.mintAt(params, issuedTS)
}

func (iss *Issuer) mintAt(params IssuanceParameters, issuedTS uint32) (string, EmbeddedMetadata, error) {
	meta := buildMetadata(params, issuedTS)
	tok, err := encodeToken(iss.secret, params.ClientID, params.ClientName, params.Email, issuedTS, meta)
	if err != nil {
		return "", EmbeddedMetadata{}, err
	}
	iss.logger.WithFields(logrus.Fields{
		"client_id": params.ClientID,
		"max_seats": params.MaxSeats,
	}).Info("license minted")
	return tok, meta, nil
}

// BulkMint mints n >= 1 distinct tokens for a client. Per §9's open
// question, this implementation steps issued_ts by one second per item
// starting from the clock's current reading: since client binding and
// parameters are identical across the batch, a shared issued_ts would
// collide byte-for-byte (determinism, §4.2), so distinctness is achieved
// by advancing the timestamp that determinism is keyed on. This bounds a
// single BulkMint call to n seconds of minted timestamp spread, which is
// acceptable given §8's n <= 1000 test bound.
func (iss *Issuer) BulkMint(params IssuanceParameters, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("license: bulk mint count must be >= 1")
	}
	start := iss.clock.Now()
	tokens := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tok, _, err := iss.mintAt(params, start+uint32(i))
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	iss.logger.WithField("count", n).Info("license bulk mint complete")
	return tokens, nil
}

// Validate decodes and evaluates a token against its persisted record
// without mutating any state, the read-only counterpart to ConsumeOnce,
// grounded in the original's validate_license_with_context, which itself
// never increments usage.
func (iss *Issuer) Validate(ctx context.Context, tokenText string, vctx ValidationContext) Verdict {
	record, err := iss.store.Find(ctx, tokenText)
	if err != nil {
		return rejection(KindRecordNotFound)
	}
	if vctx.Now == 0 {
		vctx.Now = iss.clock.Now()
	}
	vctx.ClockSkewSeconds = iss.clockSkew
	return Evaluate(iss.secret, tokenText, record, vctx)
}

// ConsumeOnce decodes, loads the record, and runs the Policy Engine. On
// Valid it increments UsageCount by exactly 1, sets LastUsed, and
// persists; on Rejection it makes no state changes. The whole
// load-validate-store sequence is serialized per token (§5).
func (iss *Issuer) ConsumeOnce(ctx context.Context, tokenText string, vctx ValidationContext) Verdict {
	mu := iss.lockFor(tokenText)
	mu.Lock()
	defer mu.Unlock()

	record, err := iss.store.Find(ctx, tokenText)
	if err != nil {
		return rejection(KindRecordNotFound)
	}
	if vctx.Now == 0 {
		vctx.Now = iss.clock.Now()
	}
	vctx.ClockSkewSeconds = iss.clockSkew

	verdict := Evaluate(iss.secret, tokenText, record, vctx)
	if !verdict.Valid() {
		iss.logger.WithFields(logrus.Fields{
			"token_prefix": tokenPrefixOf(tokenText),
			"kind":         verdict.Kind,
		}).Info("license consume rejected")
		return verdict
	}

	record.UsageCount++
	now := vctx.Now
	record.LastUsed = &now

	if err := iss.store.Save(ctx, record); err != nil {
		// A partial failure between validation success and persistence
		// is equivalent to rejection (§5): the caller sees an error and
		// no observable state change went through.
		iss.logger.WithError(err).Warn("license consume: persist failed")
		return rejection(KindRecordNotFound)
	}

	iss.logger.WithField("token_prefix", tokenPrefixOf(tokenText)).Info("license consumed")
	return verdict
}

// Regenerate mints a fresh token using the record's existing client_id,
// expires_at, max_seats, and features, recovered by decoding the
// record's current token, and overwrites record.Token. The usage
// counter is not reset (§4.5). clientName and email are not part of
// TokenRecord (§3's data model keeps the record to bare client_id); they
// belong to the external client directory and must be supplied by the
// caller, exactly as the client binding hash requires at any mint.
//
// Every TokenRecordStore implementation keys its records by Token, so a
// changed Token is a new primary key: Regenerate inserts the record
// under the new key before deleting the old one, rather than calling
// Save (which would silently leave the stale record behind under the
// old token string).
func (iss *Issuer) Regenerate(ctx context.Context, record TokenRecord, clientName, email string) (string, error) {
	decoded, kind, err := decodeToken(iss.secret, record.Token)
	if err != nil {
		return "", newValidationError(kind, verdictMessages[kind], err)
	}

	tok, _, err := iss.Mint(IssuanceParameters{
		ClientID:   record.ClientID,
		ClientName: clientName,
		Email:      email,
		ExpiresAt:  decoded.Metadata.Expires,
		MaxSeats:   decoded.Metadata.MaxSeats,
		Features:   decoded.Metadata.Features,
	})
	if err != nil {
		return "", err
	}

	oldToken := record.Token
	record.Token = tok
	if err := iss.store.Insert(ctx, record); err != nil {
		return "", fmt.Errorf("license: regenerate: %w", err)
	}
	if err := iss.store.Delete(ctx, oldToken); err != nil {
		return "", fmt.Errorf("license: regenerate: failed to remove stale record: %w", err)
	}
	return tok, nil
}

// HardwareFingerprintOf computes a deterministic 64-hex-character
// SHA-256 fingerprint from a system-info mapping: sort keys
// lexicographically, join "key:value" pairs with "|" (§4.5), exactly as
// LicenseManager.generate_hardware_fingerprint does in the original.
func HardwareFingerprintOf(systemInfo map[string]string) string {
	keys := make([]string, 0, len(systemInfo))
	for k := range systemInfo {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, systemInfo[k]))
	}

	combined := make([]byte, 0, 256)
	for i, p := range parts {
		if i > 0 {
			combined = append(combined, '|')
		}
		combined = append(combined, p...)
	}

	sum := sha256.Sum256(combined)
	return hex.EncodeToString(sum[:])
}
