package license

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
)

// tokenPrefix is the literal, mandatory prefix of every textual token.
const tokenPrefix = "ALK-"

// groupSize is how many Base32 characters sit between hyphens.
const groupSize = 5

var b32 = base32.StdEncoding

// decodedPayload is the fully-verified, fully-decoded token: the layout
// fields plus the decompressed metadata. Produced only after all four
// validation steps in §4.3 have passed.
type decodedPayload struct {
	IssuedTS uint32
	Metadata EmbeddedMetadata
}

// clientBinding computes the first 8 bytes of SHA-256 over
// "{client_id}:{client_name}:{email}" (§4.1).
func clientBinding(clientID uint32, clientName, email string) [clientBindingLen]byte {
	data := []byte(fmt.Sprintf("%d:%s:%s", clientID, clientName, email))
	sum := sha256.Sum256(data)
	var out [clientBindingLen]byte
	copy(out[:], sum[:clientBindingLen])
	return out
}

// signingSecret is the process-wide HMAC key, injected at Issuer
// construction and held behind an immutable reference (§5, §9).
type signingSecret []byte

// encodeToken runs the full issuance pipeline: metadata serialization,
// binary layout packing, checksum, MAC, then Base32 text framing.
func encodeToken(secret signingSecret, clientID uint32, clientName, email string, issuedTS uint32, meta EmbeddedMetadata) (string, error) {
	metaBytes, err := encodeMetadata(meta)
	if err != nil {
		return "", err
	}

	binding := clientBinding(clientID, clientName, email)

	core := packCore(CurrentVersion, issuedTS, binding, metaBytes)
	checksum := crc32.ChecksumIEEE(core)

	withChecksum := appendChecksum(core, checksum)
	mac := computeMAC(secret, withChecksum)

	final := packLayout(CurrentVersion, issuedTS, binding, metaBytes, checksum, mac)
	return frameToken(final), nil
}

// packCore builds the portion of the payload that checksum and MAC both
// cover: version + issued_ts + client_binding + compressed_metadata.
func packCore(version byte, issuedTS uint32, binding [clientBindingLen]byte, metaBytes []byte) []byte {
	out := make([]byte, 0, 1+4+clientBindingLen+len(metaBytes))
	out = append(out, version)
	out = appendUint32(out, issuedTS)
	out = append(out, binding[:]...)
	out = append(out, metaBytes...)
	return out
}

func appendChecksum(core []byte, checksum uint32) []byte {
	return appendUint32(append([]byte{}, core...), checksum)
}

func computeMAC(secret signingSecret, coreWithChecksum []byte) [macLen]byte {
	h := hmac.New(sha256.New, secret)
	h.Write(coreWithChecksum)
	sum := h.Sum(nil)
	var out [macLen]byte
	copy(out[:], sum[:macLen])
	return out
}

// frameToken applies RFC 4648 Base32 encoding, strips padding, groups
// into runs of 5 separated by hyphens, and prepends the literal prefix.
func frameToken(payload []byte) string {
	encoded := b32.EncodeToString(payload)
	encoded = strings.TrimRight(encoded, "=")

	var groups []string
	for i := 0; i < len(encoded); i += groupSize {
		end := i + groupSize
		if end > len(encoded) {
			end = len(encoded)
		}
		groups = append(groups, encoded[i:end])
	}
	return tokenPrefix + strings.Join(groups, "-")
}

// decodeToken runs the mandatory ordering from §4.3: (1) framing &
// length, (2) checksum, (3) MAC, (4) metadata decompression & shape.
// Tampered or forged tokens are rejected as early in this chain as the
// tamper touches.
func decodeToken(secret signingSecret, text string) (decodedPayload, VerdictKind, error) {
	payload, kind, err := unframeToken(text)
	if err != nil {
		return decodedPayload{}, kind, err
	}

	fields, err := unpackLayout(payload)
	if err == ErrUnknownVersion {
		// The version byte is covered by the checksum and MAC, so a
		// changed version byte is reported as tampering unless both still
		// verify over the payload as received.
		macStart := len(payload) - macLen
		checksumStart := macStart - checksumLen
		if binary.BigEndian.Uint32(payload[checksumStart:macStart]) != crc32.ChecksumIEEE(payload[:checksumStart]) {
			return decodedPayload{}, KindChecksumFailed, ErrChecksumFailed
		}
		expected := computeMAC(secret, payload[:macStart])
		if !hmac.Equal(expected[:], payload[macStart:]) {
			return decodedPayload{}, KindSignatureFailed, ErrSignatureFailed
		}
		return decodedPayload{}, KindUnknownVersion, err
	}
	if err != nil {
		return decodedPayload{}, KindMalformedFraming, err
	}

	expectedChecksum := crc32.ChecksumIEEE(fields.corePayload)
	if fields.Checksum != expectedChecksum {
		return decodedPayload{}, KindChecksumFailed, ErrChecksumFailed
	}

	withChecksum := appendChecksum(fields.corePayload, fields.Checksum)
	expectedMAC := computeMAC(secret, withChecksum)
	if !hmac.Equal(expectedMAC[:], fields.MAC[:]) {
		return decodedPayload{}, KindSignatureFailed, ErrSignatureFailed
	}

	meta, err := decodeMetadata(fields.CompressedMetadata)
	if err != nil {
		return decodedPayload{}, KindMalformedMetadata, err
	}

	return decodedPayload{IssuedTS: fields.IssuedTS, Metadata: meta}, KindValid, nil
}

// unframeToken strips the "ALK-" prefix and hyphens, re-pads to a
// multiple of 8 characters, and Base32-decodes (case-insensitive).
func unframeToken(text string) ([]byte, VerdictKind, error) {
	if !strings.HasPrefix(text, tokenPrefix) {
		return nil, KindMalformedFraming, ErrMalformedFraming
	}

	clean := strings.ReplaceAll(text[len(tokenPrefix):], "-", "")
	clean = strings.ToUpper(clean)

	if rem := len(clean) % 8; rem != 0 {
		clean += strings.Repeat("=", 8-rem)
	}

	payload, err := b32.DecodeString(clean)
	if err != nil {
		return nil, KindMalformedFraming, ErrMalformedFraming
	}
	return payload, KindValid, nil
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
