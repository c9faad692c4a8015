package license

import (
	"bytes"
	"compress/flate"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// encodeMetadata renders an EmbeddedMetadata into the canonical
// deflate-compressed byte form described in §4.2: keys in a fixed order,
// no whitespace, feature keys sorted lexicographically.
//
// Determinism is the whole point of this function: the same metadata must
// always produce the same bytes, across processes and across runs, so
// that BulkMint/round-trip tests have a reproducible surface.
func encodeMetadata(m EmbeddedMetadata) ([]byte, error) {
	canonical, err := canonicalMetadataJSON(m)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(canonical); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// canonicalMetadataJSON writes the fixed envelope key order
// (client_id, email_hash, expires, max_users, features, issued) with
// features' own keys sorted ascending, and no inserted whitespace.
func canonicalMetadataJSON(m EmbeddedMetadata) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"client_id":`)
	buf.WriteString(strconv.FormatUint(uint64(m.ClientID), 10))

	buf.WriteString(`,"email_hash":`)
	eh, err := json.Marshal(m.EmailHash)
	if err != nil {
		return nil, err
	}
	buf.Write(eh)

	buf.WriteString(`,"expires":`)
	buf.WriteString(strconv.FormatUint(uint64(m.Expires), 10))

	buf.WriteString(`,"max_users":`)
	buf.WriteString(strconv.FormatUint(uint64(m.MaxSeats), 10))

	buf.WriteString(`,"features":{`)
	keys := make([]string, 0, len(m.Features))
	for k := range m.Features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.Features[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')

	buf.WriteString(`,"issued":`)
	buf.WriteString(strconv.FormatUint(uint64(m.Issued), 10))

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// wireMetadata mirrors the JSON shape decodeMetadata reads back: plain
// field types so json.Unmarshal can validate the value kinds itself.
type wireMetadata struct {
	ClientID  *uint32           `json:"client_id"`
	EmailHash *string           `json:"email_hash"`
	Expires   *uint32           `json:"expires"`
	MaxUsers  *uint32           `json:"max_users"`
	Features  map[string]interface{} `json:"features"`
	Issued    *uint32           `json:"issued"`
}

// decodeMetadata reverses encodeMetadata: inflate, then parse, checking
// that every expected key is present with the expected kind. Any failure
// is ErrMalformedMetadata (§4.2).
func decodeMetadata(compressed []byte) (EmbeddedMetadata, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return EmbeddedMetadata{}, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	var w wireMetadata
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return EmbeddedMetadata{}, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	if w.ClientID == nil || w.Expires == nil || w.MaxUsers == nil || w.Issued == nil || w.Features == nil || w.EmailHash == nil {
		return EmbeddedMetadata{}, fmt.Errorf("%w: missing required key", ErrMalformedMetadata)
	}

	return EmbeddedMetadata{
		ClientID:  *w.ClientID,
		EmailHash: *w.EmailHash,
		Expires:   *w.Expires,
		Issued:    *w.Issued,
		MaxSeats:  *w.MaxUsers,
		Features:  w.Features,
	}, nil
}
