package license

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, clock Clock) (*Issuer, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewIssuer([]byte(testSecret()), store, clock, nil), store
}

// steppingClock advances by one second on every Now() call. Used where a
// test needs two mints to observe distinct issued_ts readings, since the
// codec's determinism contract (§4.2) means identical params at an
// identical issued_ts always produce byte-identical tokens.
type steppingClock struct{ n uint32 }

func (c *steppingClock) Now() uint32 {
	c.n++
	return c.n
}

func TestIssuerMintAndValidate(t *testing.T) {
	iss, store := newTestIssuer(t, FixedClock(1000))
	ctx := context.Background()

	tok, _, err := iss.Mint(IssuanceParameters{ClientID: 1, ClientName: "Acme", MaxSeats: 2})
	require.NoError(t, err)

	require.NoError(t, store.Insert(ctx, TokenRecord{Token: tok, ClientID: 1, IsActive: true}))

	v := iss.Validate(ctx, tok, ValidationContext{})
	require.True(t, v.Valid())
	assert.Equal(t, uint32(2), v.RemainingSeats)

	record, err := store.Find(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), record.UsageCount, "Validate must not mutate usage")
}

func TestIssuerClockSkewTolerance(t *testing.T) {
	iss, store := newTestIssuer(t, FixedClock(2000))
	ctx := context.Background()

	tok, _, err := iss.Mint(IssuanceParameters{ClientID: 1, ClientName: "Acme", MaxSeats: 1})
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, TokenRecord{Token: tok, ClientID: 1, IsActive: true}))

	// The default Issuer has zero clock skew tolerance: a validating
	// clock reading behind the token's issued_ts is rejected.
	rejected := iss.Validate(ctx, tok, ValidationContext{Now: 1990})
	assert.Equal(t, KindClockSkewExceeded, rejected.Kind)

	iss.SetClockSkew(20)
	accepted := iss.Validate(ctx, tok, ValidationContext{Now: 1990})
	assert.True(t, accepted.Valid())
}

func TestIssuerMintRejectsZeroSeats(t *testing.T) {
	iss, _ := newTestIssuer(t, FixedClock(1000))
	_, _, err := iss.Mint(IssuanceParameters{ClientID: 1, ClientName: "Acme", MaxSeats: 0})
	require.Error(t, err)
}

func TestIssuerConsumeOnceSeatExhaustion(t *testing.T) {
	iss, store := newTestIssuer(t, FixedClock(1000))
	ctx := context.Background()

	const seats = 3
	tok, _, err := iss.Mint(IssuanceParameters{ClientID: 1, ClientName: "Acme", MaxSeats: seats})
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, TokenRecord{Token: tok, ClientID: 1, IsActive: true}))

	for i := 0; i < seats; i++ {
		v := iss.ConsumeOnce(ctx, tok, ValidationContext{})
		require.True(t, v.Valid(), "expected consume %d to succeed", i+1)
	}

	v := iss.ConsumeOnce(ctx, tok, ValidationContext{})
	assert.Equal(t, KindSeatsExhausted, v.Kind)

	record, err := store.Find(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, uint32(seats), record.UsageCount)
}

func TestIssuerConsumeOnceRecordNotFound(t *testing.T) {
	iss, _ := newTestIssuer(t, FixedClock(1000))
	v := iss.ConsumeOnce(context.Background(), "ALK-AAAAA", ValidationContext{})
	assert.Equal(t, KindRecordNotFound, v.Kind)
}

func TestIssuerBulkMintUniqueness(t *testing.T) {
	iss, _ := newTestIssuer(t, FixedClock(1000))
	const n = 200
	tokens, err := iss.BulkMint(IssuanceParameters{ClientID: 1, ClientName: "Acme", MaxSeats: 1}, n)
	require.NoError(t, err)
	require.Len(t, tokens, n)

	seen := make(map[string]struct{}, n)
	for _, tok := range tokens {
		_, dup := seen[tok]
		assert.False(t, dup, "duplicate token minted: %s", tok)
		seen[tok] = struct{}{}
	}
}

func TestIssuerBulkMintRejectsZero(t *testing.T) {
	iss, _ := newTestIssuer(t, FixedClock(1000))
	_, err := iss.BulkMint(IssuanceParameters{ClientID: 1, ClientName: "Acme", MaxSeats: 1}, 0)
	require.Error(t, err)
}

func TestIssuerRegeneratePreservesParameters(t *testing.T) {
	// A clock that advances between the initial mint and the regeneration:
	// with a fixed clock, identical IssuanceParameters at an identical
	// issued_ts would deterministically reproduce the same token string
	// (§4.2), so NotEqual below needs the issued_ts to actually differ.
	iss, store := newTestIssuer(t, &steppingClock{n: 999})
	ctx := context.Background()

	tok, _, err := iss.Mint(IssuanceParameters{
		ClientID: 5, ClientName: "Acme", Email: "a@acme.com",
		ExpiresAt: 9999, MaxSeats: 7, Features: map[string]FeatureValue{"x": true},
	})
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, TokenRecord{Token: tok, ClientID: 5, IsActive: true, UsageCount: 3}))

	record, err := store.Find(ctx, tok)
	require.NoError(t, err)

	newTok, err := iss.Regenerate(ctx, record, "Acme", "a@acme.com")
	require.NoError(t, err)
	assert.NotEqual(t, tok, newTok)

	decoded, kind, err := decodeToken(iss.secret, newTok)
	require.NoError(t, err)
	assert.Equal(t, KindValid, kind)
	assert.Equal(t, uint32(9999), decoded.Metadata.Expires)
	assert.Equal(t, uint32(7), decoded.Metadata.MaxSeats)
	assert.Equal(t, true, decoded.Metadata.Features["x"])

	updated, err := store.Find(ctx, newTok)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), updated.UsageCount, "usage count must survive regeneration")

	_, err = store.Find(ctx, tok)
	assert.ErrorIs(t, err, ErrRecordNotFound, "old token must be retired, not left stale")
}

func TestHardwareFingerprintDeterministic(t *testing.T) {
	info := map[string]string{"cpu": "x86_64", "mac": "aa:bb:cc"}
	fp1 := HardwareFingerprintOf(info)
	fp2 := HardwareFingerprintOf(map[string]string{"mac": "aa:bb:cc", "cpu": "x86_64"})
	assert.Equal(t, fp1, fp2, "key order must not affect the fingerprint")
	assert.Len(t, fp1, 64)
}

func TestHardwareFingerprintDiffersOnChange(t *testing.T) {
	fp1 := HardwareFingerprintOf(map[string]string{"cpu": "x86_64"})
	fp2 := HardwareFingerprintOf(map[string]string{"cpu": "arm64"})
	assert.NotEqual(t, fp1, fp2)
}
