package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintFor(t *testing.T, secret signingSecret, params IssuanceParameters, issuedTS uint32) (string, EmbeddedMetadata) {
	t.Helper()
	meta := buildMetadata(params, issuedTS)
	tok, err := encodeToken(secret, params.ClientID, params.ClientName, params.Email, issuedTS, meta)
	require.NoError(t, err)
	return tok, meta
}

func TestPolicyScenario1_ValidImmediately(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{
		ClientID: 42, ClientName: "Acme", Email: "a@acme.com",
		MaxSeats: 1, Features: map[string]FeatureValue{"api": true},
	}, 1000)

	record := TokenRecord{Token: tok, ClientID: 42, IsActive: true}
	v := Evaluate(secret, tok, record, ValidationContext{Now: 1000})
	require.True(t, v.Valid())
	assert.Equal(t, uint32(1), v.RemainingSeats)
	assert.Equal(t, "License is valid", v.Message)
}

func TestPolicyScenario2_SeatExhaustion(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{ClientID: 1, ClientName: "A", MaxSeats: 1}, 1000)

	record := TokenRecord{Token: tok, ClientID: 1, IsActive: true, UsageCount: 0}
	v1 := Evaluate(secret, tok, record, ValidationContext{Now: 1000})
	require.True(t, v1.Valid())

	record.UsageCount = 1
	v2 := Evaluate(secret, tok, record, ValidationContext{Now: 1000})
	assert.Equal(t, KindSeatsExhausted, v2.Kind)
}

func TestPolicyScenario3_TokenExpired(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{ClientID: 1, ClientName: "A", MaxSeats: 1, ExpiresAt: 2000}, 1000)
	record := TokenRecord{Token: tok, ClientID: 1, IsActive: true}

	v := Evaluate(secret, tok, record, ValidationContext{Now: 2001})
	assert.Equal(t, KindTokenExpired, v.Kind)
}

func TestPolicyScenario4_TamperedSignature(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{ClientID: 1, ClientName: "A", MaxSeats: 1}, 1000)
	record := TokenRecord{Token: tok, ClientID: 1, IsActive: true}

	body := []rune(tok)
	idx := len("ALK-")
	if body[idx] != 'X' {
		body[idx] = 'X'
	} else {
		body[idx] = 'Y'
	}
	tampered := string(body)

	v := Evaluate(secret, tampered, record, ValidationContext{Now: 1000})
	assert.Contains(t, []VerdictKind{KindChecksumFailed, KindSignatureFailed}, v.Kind)
}

func TestPolicyScenario5_ClientMismatch(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{ClientID: 7, ClientName: "A", MaxSeats: 1}, 1000)
	record := TokenRecord{Token: tok, ClientID: 8, IsActive: true}

	v := Evaluate(secret, tok, record, ValidationContext{Now: 1000})
	assert.Equal(t, KindClientMismatch, v.Kind)
}

func TestPolicyScenario6_IPAllowlist(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{ClientID: 1, ClientName: "A", MaxSeats: 1}, 1000)
	record := TokenRecord{
		Token: tok, ClientID: 1, IsActive: true,
		IPAllowlist: map[string]struct{}{"10.0.0.1": {}},
	}

	blocked := Evaluate(secret, tok, record, ValidationContext{Now: 1000, IP: "10.0.0.2"})
	assert.Equal(t, KindIPNotAuthorized, blocked.Kind)

	allowed := Evaluate(secret, tok, record, ValidationContext{Now: 1000, IP: "10.0.0.1"})
	assert.True(t, allowed.Valid())

	skipped := Evaluate(secret, tok, record, ValidationContext{Now: 1000})
	assert.True(t, skipped.Valid())
}

func TestPolicyInactiveRecord(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{ClientID: 1, ClientName: "A", MaxSeats: 1}, 1000)
	record := TokenRecord{Token: tok, ClientID: 1, IsActive: false}

	v := Evaluate(secret, tok, record, ValidationContext{Now: 1000})
	assert.Equal(t, KindInactive, v.Kind)
}

func TestPolicyRecordExpired(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{ClientID: 1, ClientName: "A", MaxSeats: 1}, 1000)
	expiry := uint32(1500)
	record := TokenRecord{Token: tok, ClientID: 1, IsActive: true, RecordExpiresAt: &expiry}

	v := Evaluate(secret, tok, record, ValidationContext{Now: 1500})
	assert.Equal(t, KindRecordExpired, v.Kind)
}

func TestPolicyHostSuffixMatch(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{ClientID: 1, ClientName: "A", MaxSeats: 1}, 1000)
	record := TokenRecord{
		Token: tok, ClientID: 1, IsActive: true,
		HostAllowlist: map[string]struct{}{"acme.com": {}},
	}

	ok := Evaluate(secret, tok, record, ValidationContext{Now: 1000, Host: "internal.acme.com"})
	assert.True(t, ok.Valid())

	bad := Evaluate(secret, tok, record, ValidationContext{Now: 1000, Host: "malicious.com"})
	assert.Equal(t, KindHostNotAuthorized, bad.Kind)
}

func TestPolicyHardwareFingerprintSkippedWhenOmitted(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{ClientID: 1, ClientName: "A", MaxSeats: 1}, 1000)
	fp := "aa"
	record := TokenRecord{Token: tok, ClientID: 1, IsActive: true, HardwareFingerprint: &fp}

	// Caller omits fingerprint entirely: rule is skipped per §9 (verbatim
	// source behavior, not hardened).
	v := Evaluate(secret, tok, record, ValidationContext{Now: 1000})
	assert.True(t, v.Valid())

	mismatch := Evaluate(secret, tok, record, ValidationContext{Now: 1000, HardwareFingerprint: "bb"})
	assert.Equal(t, KindHardwareMismatch, mismatch.Kind)

	match := Evaluate(secret, tok, record, ValidationContext{Now: 1000, HardwareFingerprint: "aa"})
	assert.True(t, match.Valid())
}

func TestPolicyClockSkewTolerance(t *testing.T) {
	secret := testSecret()
	tok, _ := mintFor(t, secret, IssuanceParameters{ClientID: 1, ClientName: "A", MaxSeats: 1}, 1000)
	record := TokenRecord{Token: tok, ClientID: 1, IsActive: true}

	// now is before issued (clock drift) but within the configured
	// tolerance: accepted.
	within := Evaluate(secret, tok, record, ValidationContext{Now: 995, ClockSkewSeconds: 10})
	assert.True(t, within.Valid())

	// now is further before issued than the tolerance allows: rejected.
	beyond := Evaluate(secret, tok, record, ValidationContext{Now: 900, ClockSkewSeconds: 10})
	assert.Equal(t, KindClockSkewExceeded, beyond.Kind)

	// zero tolerance (the default) rejects any issued-in-the-future token.
	noSkew := Evaluate(secret, tok, record, ValidationContext{Now: 999})
	assert.Equal(t, KindClockSkewExceeded, noSkew.Kind)
}
