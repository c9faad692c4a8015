package license

import "strings"

// Evaluate applies the ordered rule set from §4.4 to a decoded token, its
// persisted record, and a validation context, stopping at the first
// failure. It performs no I/O and mutates nothing; ConsumeOnce is
// responsible for the seat increment after a Valid verdict.
func Evaluate(secret signingSecret, tokenText string, record TokenRecord, ctx ValidationContext) Verdict {
	// Rule 1: record must be active.
	if !record.IsActive {
		return rejection(KindInactive)
	}

	// Rule 2: record-level expiry, checked before the cryptographic
	// decode so an administratively-expired record never pays for it.
	if record.RecordExpiresAt != nil && *record.RecordExpiresAt <= ctx.Now {
		return rejection(KindRecordExpired)
	}

	// Rule 3: decode & cryptographically verify the token.
	decoded, kind, err := decodeToken(secret, tokenText)
	if err != nil {
		return rejection(kind)
	}

	// §3 invariant: issued <= now + skew, tolerating clock drift between
	// the minting host and this validating host.
	if uint64(decoded.IssuedTS) > uint64(ctx.Now)+uint64(ctx.ClockSkewSeconds) {
		return rejection(KindClockSkewExceeded)
	}

	// Rule 4: embedded expiry.
	if decoded.Metadata.Expires != 0 && ctx.Now >= decoded.Metadata.Expires {
		return rejection(KindTokenExpired)
	}

	// Rule 5: client identity must match the record it was looked up
	// under.
	if decoded.Metadata.ClientID != record.ClientID {
		return rejection(KindClientMismatch)
	}

	// Rule 6: IP allowlist, exact match, only enforced when both a
	// caller IP and a non-empty allowlist are present.
	if ctx.IP != "" && len(record.IPAllowlist) > 0 {
		if _, ok := record.IPAllowlist[ctx.IP]; !ok {
			return rejection(KindIPNotAuthorized)
		}
	}

	// Rule 7: host allowlist, suffix match, case-insensitive, only
	// enforced when both a caller host and a non-empty allowlist are
	// present. No wildcards, no leading-dot special-casing (§4.4).
	if ctx.Host != "" && len(record.HostAllowlist) > 0 {
		host := strings.ToLower(ctx.Host)
		matched := false
		for pattern := range record.HostAllowlist {
			if strings.HasSuffix(host, strings.ToLower(pattern)) {
				matched = true
				break
			}
		}
		if !matched {
			return rejection(KindHostNotAuthorized)
		}
	}

	// Rule 8: hardware fingerprint, byte-for-byte match. Skipped
	// (verbatim source behavior per §9) when the record demands one but
	// the caller omits it.
	if record.HardwareFingerprint != nil && ctx.HardwareFingerprint != "" {
		if *record.HardwareFingerprint != ctx.HardwareFingerprint {
			return rejection(KindHardwareMismatch)
		}
	}

	// Rule 9: seat usage.
	if record.UsageCount >= decoded.Metadata.MaxSeats {
		return rejection(KindSeatsExhausted)
	}

	remaining := decoded.Metadata.MaxSeats - record.UsageCount
	return valid(remaining)
}
