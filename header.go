package goJWT

import (
	"bytes"
	"fmt"
	"sort"
)

// Header field names with fixed meaning.
const (
	HeaderAlgorithm = "alg"
	HeaderType      = "typ"
	HeaderKeyID     = "kid"
)

// DefaultType is written as typ for claims payloads unless Headers overrides it.
const DefaultType = "JWT"

// Header is the decoded JOSE header. It is immutable: accessors return copies.
type Header struct {
	alg    string
	fields *Claims
}

// newHeader builds the signing header. typ defaults to DefaultType only when
// withType is set, i.e. for claims payloads; Headers can still add it.
func newHeader(alg Algorithm, keyID string, extra map[string]any, withType bool) (Header, error) {
	fields := NewClaims()
	fields.Set(HeaderAlgorithm, alg.String())
	if withType {
		fields.Set(HeaderType, DefaultType)
	}

	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := extra[name]
		switch name {
		case HeaderAlgorithm:
			return Header{}, fmt.Errorf("%w: alg is set by the signing algorithm", ErrInvalidHeader)
		case HeaderType:
			s, ok := v.(string)
			if !ok {
				return Header{}, fmt.Errorf("%w: typ must be a string", ErrInvalidHeader)
			}
			fields.Set(HeaderType, s)
			continue
		case HeaderKeyID:
			s, ok := v.(string)
			if !ok {
				return Header{}, fmt.Errorf("%w: kid must be a string", ErrInvalidHeader)
			}
			if keyID != "" && s != keyID {
				return Header{}, fmt.Errorf("%w: kid %q conflicts with key id %q", ErrInvalidHeader, s, keyID)
			}
		}
		fields.Set(name, v)
	}
	if keyID != "" && !fields.Has(HeaderKeyID) {
		fields.Set(HeaderKeyID, keyID)
	}
	return Header{alg: alg.String(), fields: fields}, nil
}

func parseHeader(data []byte) (Header, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.TrimSpace(data)[0] != '{' {
		return Header{}, fmt.Errorf("%w: header is not a JSON object", ErrMalformedToken)
	}
	fields, err := ParseClaims(data)
	if err != nil {
		return Header{}, fmt.Errorf("%w: header: %v", ErrMalformedToken, err)
	}
	raw, ok := fields.Get(HeaderAlgorithm)
	if !ok {
		return Header{}, fmt.Errorf("%w: header has no alg", ErrMalformedToken)
	}
	alg, ok := raw.(string)
	if !ok || alg == "" {
		return Header{}, fmt.Errorf("%w: header alg must be a non-empty string", ErrMalformedToken)
	}
	return Header{alg: alg, fields: fields}, nil
}

// Alg returns the raw alg value as written in the token.
func (h Header) Alg() string {
	return h.alg
}

// Algorithm resolves alg against the registry.
func (h Header) Algorithm() (Algorithm, error) {
	return ParseAlgorithm(h.alg)
}

// Type returns typ, or "" when absent.
func (h Header) Type() string {
	s, _ := h.fields.stringClaim(HeaderType)
	return s
}

// KeyID returns kid, or "" when absent.
func (h Header) KeyID() string {
	s, _ := h.fields.stringClaim(HeaderKeyID)
	return s
}

// Get returns a raw header field.
func (h Header) Get(name string) (any, bool) {
	return h.fields.Get(name)
}

// Fields returns the header fields in encoding order.
func (h Header) Fields() []string {
	return h.fields.Keys()
}

// Map returns a copy of all header fields.
func (h Header) Map() map[string]any {
	return h.fields.Map()
}

// MarshalJSON encodes the header in field order.
func (h Header) MarshalJSON() ([]byte, error) {
	return h.fields.MarshalJSON()
}
