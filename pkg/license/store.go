package license

import "context"

// TokenRecordStore is the narrow interface the core uses to read and
// mutate per-token state. The core never holds state of its own beyond
// what a single ConsumeOnce call passes through; everything durable lives
// behind this interface (§6).
//
// Save must be atomic with respect to concurrent callers consuming the
// same token (§5): two overlapping ConsumeOnce calls on the same token
// must never both observe the same pre-increment UsageCount.
type TokenRecordStore interface {
	// Find loads a record by its token string. Returns ErrRecordNotFound
	// if no such record exists.
	Find(ctx context.Context, token string) (TokenRecord, error)

	// Save persists a record that already exists (primary key is
	// Token). Implementations must serialize this per token against
	// concurrent Save calls for the same token.
	Save(ctx context.Context, record TokenRecord) error

	// Insert persists a brand-new record. Returns ErrDuplicateToken if
	// Token already exists.
	Insert(ctx context.Context, record TokenRecord) error

	// UpdateActive flips the IsActive flag, an administrative
	// operation, not something the Policy Engine or Issuer does on its
	// own initiative.
	UpdateActive(ctx context.Context, token string, active bool) error

	// ResetUsage zeroes UsageCount. Administrative only: §3 is explicit
	// that the core never decrements usage on its own.
	ResetUsage(ctx context.Context, token string) error

	// AddIP appends an exact-match IP literal to the allowlist.
	AddIP(ctx context.Context, token string, ip string) error

	// AddHost appends a suffix-match host pattern to the allowlist.
	AddHost(ctx context.Context, token string, host string) error

	// Delete removes a record by its token string. Used by Regenerate to
	// retire the old primary key once the regenerated record has been
	// inserted under its new one. Returns ErrRecordNotFound if no such
	// record exists.
	Delete(ctx context.Context, token string) error
}
