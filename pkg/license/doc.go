// Package license implements the core of a license token system: a
// self-contained, cryptographically protected credential format and the
// validation/issuance logic around it.
//
// # Overview
//
// A token is an opaque, human-transcribable string that embeds its own
// authorization metadata (issuer-bound client identity, expiry, feature
// set, seat count) and is protected by a keyed MAC so that tampering is
// detectable offline. The package is organized leaf-first:
//
//   - Binary Layout Codec (layout.go): packs/unpacks the fixed-schema
//     payload. No cryptography, no policy.
//   - Metadata Serializer (metadata.go): canonical, deterministic byte
//     form of the embedded metadata.
//   - Token Codec (codec.go): composes layout + metadata + checksum + MAC
//     into the final byte string, then applies Base32 text framing.
//   - Policy Engine (policy.go): evaluates a decoded token against a
//     validation context and a persisted record.
//   - Issuer (issuer.go): the only type that holds the signing secret on
//     write paths.
//
// # Quick start
//
//	clock := license.SystemClock{}
//	store := license.NewMemoryStore()
//	issuer := license.NewIssuer(secret, store, clock, nil)
//
//	tok, meta, err := issuer.Mint(license.IssuanceParameters{
//	    ClientID:   42,
//	    ClientName: "Acme",
//	    MaxSeats:   1,
//	})
//
//	// Mint never persists; the record must be in the store before use.
//	err = store.Insert(ctx, license.TokenRecord{Token: tok, ClientID: meta.ClientID, IsActive: true})
//
//	verdict := issuer.ConsumeOnce(ctx, tok, license.ValidationContext{})
//
// # Thread safety
//
// The codec and policy types are pure and re-entrant. The Issuer serializes
// ConsumeOnce per token with its own per-token mutex around the store's
// Find and Save calls; each store method is itself safe for concurrent use.
package license
