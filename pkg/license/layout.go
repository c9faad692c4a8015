package license

import (
	"encoding/binary"
)

// CurrentVersion is the only layout version this codec currently
// understands. Reserved for format evolution (§4.1).
const CurrentVersion byte = 0x01

const (
	clientBindingLen = 8
	checksumLen      = 4
	macLen           = 16
)

// minPayloadLen is the fixed-field floor from §4.1: version (1) +
// issued_ts (4) + client_binding (8) + checksum (4) + mac (16) = 33,
// with zero bytes of variable-length metadata. A payload this short is
// structurally too small to carry any metadata at all, so unpackLayout
// rejects it separately from the "variable region is empty" check below
// (the latter catches payloads that are >= 33 bytes once the fixed
// fields are accounted for but still carry no metadata bytes).
const minPayloadLen = 1 + 4 + clientBindingLen + checksumLen + macLen

// layoutFields is the split, unvalidated view of a packed payload.
// Binary Layout Codec performs no cryptography and no policy: it only
// knows how to find field boundaries.
type layoutFields struct {
	Version             byte
	IssuedTS            uint32
	ClientBinding       [clientBindingLen]byte
	CompressedMetadata  []byte
	Checksum            uint32
	MAC                 [macLen]byte

	// corePayload is everything preceding Checksum+MAC: version through
	// compressed metadata. It is what the checksum and MAC are computed
	// over (extended by the checksum bytes for the MAC).
	corePayload []byte
}

// packLayout concatenates the fixed-schema payload, big-endian throughout.
func packLayout(version byte, issuedTS uint32, binding [clientBindingLen]byte, metaBytes []byte, checksum uint32, mac [macLen]byte) []byte {
	out := make([]byte, 0, 1+4+clientBindingLen+len(metaBytes)+checksumLen+macLen)
	out = append(out, version)
	out = binary.BigEndian.AppendUint32(out, issuedTS)
	out = append(out, binding[:]...)
	out = append(out, metaBytes...)
	out = binary.BigEndian.AppendUint32(out, checksum)
	out = append(out, mac[:]...)
	return out
}

// unpackLayout splits a byte payload into its constituent fields without
// verifying checksum, MAC, or metadata shape; that is the Token Codec's
// and Metadata Serializer's job, in the mandatory order from §4.3.
func unpackLayout(payload []byte) (layoutFields, error) {
	if len(payload) < minPayloadLen {
		return layoutFields{}, ErrMalformedLayout
	}

	version := payload[0]
	if version != CurrentVersion {
		return layoutFields{}, ErrUnknownVersion
	}

	issuedTS := binary.BigEndian.Uint32(payload[1:5])

	var binding [clientBindingLen]byte
	copy(binding[:], payload[5:5+clientBindingLen])

	macStart := len(payload) - macLen
	checksumStart := macStart - checksumLen
	metaStart := 5 + clientBindingLen

	compressedMetadata := payload[metaStart:checksumStart]
	if len(compressedMetadata) == 0 {
		return layoutFields{}, ErrMalformedLayout
	}

	checksum := binary.BigEndian.Uint32(payload[checksumStart:macStart])

	var mac [macLen]byte
	copy(mac[:], payload[macStart:])

	return layoutFields{
		Version:            version,
		IssuedTS:           issuedTS,
		ClientBinding:      binding,
		CompressedMetadata: compressedMetadata,
		Checksum:           checksum,
		MAC:                mac,
		corePayload:        payload[:checksumStart],
	}, nil
}
