package goJWT

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// Registered claim names.
const (
	ClaimExpiresAt = "exp"
	ClaimNotBefore = "nbf"
	ClaimIssuedAt  = "iat"
	ClaimAudience  = "aud"
	ClaimIssuer    = "iss"
	ClaimSubject   = "sub"
	ClaimJWTID     = "jti"
)

// Payload is the body of a token. It is either Opaque or *Claims; the set is
// closed.
type Payload interface {
	payload()
}

// Opaque is a payload carried verbatim. Claim options and claim validation
// never apply to it.
type Opaque []byte

func (Opaque) payload() {}

// Claims is an ordered claim set. Insertion order is kept through encode and
// decode; numbers decoded from a token are json.Number so integers survive
// unchanged.
//
// A Claims value is not safe for concurrent mutation. Sign clones it before
// folding in registered claims, so the caller's copy is never modified.
type Claims struct {
	keys   []string
	values map[string]any
}

func (*Claims) payload() {}

// NewClaims returns an empty claim set.
func NewClaims() *Claims {
	return &Claims{values: make(map[string]any)}
}

// ClaimsFrom copies m into a new claim set. Go maps have no order, so keys are
// added in sorted order.
func ClaimsFrom(m map[string]any) *Claims {
	c := &Claims{
		keys:   make([]string, 0, len(m)),
		values: make(map[string]any, len(m)),
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.Set(name, m[name])
	}
	return c
}

// ParseClaims decodes a JSON object into a claim set, keeping member order.
// Duplicate member names are rejected.
func ParseClaims(data []byte) (*Claims, error) {
	c := NewClaims()
	if err := c.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return c, nil
}

// Set adds or replaces a claim and returns c for chaining. Replacing keeps the
// original position.
func (c *Claims) Set(name string, value any) *Claims {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	if _, ok := c.values[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.values[name] = value
	return c
}

// Get returns the raw claim value.
func (c *Claims) Get(name string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[name]
	return v, ok
}

// Has reports whether the claim is present.
func (c *Claims) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Delete removes a claim if present.
func (c *Claims) Delete(name string) {
	if c == nil {
		return
	}
	if _, ok := c.values[name]; !ok {
		return
	}
	delete(c.values, name)
	for i, k := range c.keys {
		if k == name {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Keys returns claim names in order.
func (c *Claims) Keys() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of claims.
func (c *Claims) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Map returns a shallow copy as a plain map.
func (c *Claims) Map() map[string]any {
	out := make(map[string]any, c.Len())
	if c == nil {
		return out
	}
	for _, k := range c.keys {
		out[k] = c.values[k]
	}
	return out
}

// Clone returns a shallow copy; claim values are shared.
func (c *Claims) Clone() *Claims {
	if c == nil {
		return NewClaims()
	}
	out := &Claims{
		keys:   make([]string, len(c.keys)),
		values: make(map[string]any, len(c.values)),
	}
	copy(out.keys, c.keys)
	for k, v := range c.values {
		out.values[k] = v
	}
	return out
}

// Decode unmarshals the claim set into v, typically a struct with json tags.
func (c *Claims) Decode(v any) error {
	data, err := c.MarshalJSON()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// MarshalJSON encodes the claims as an object in insertion order. Values that
// encoding/json cannot represent (channels, funcs, NaN) fail.
func (c *Claims) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if c != nil {
		for i, k := range c.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := marshalJSON(k)
			if err != nil {
				return nil, err
			}
			value, err := marshalJSON(c.values[k])
			if err != nil {
				return nil, fmt.Errorf("claim %q: %w", k, err)
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces c with the members of a JSON object.
func (c *Claims) UnmarshalJSON(data []byte) error {
	keys, values, err := decodeObject(data)
	if err != nil {
		return err
	}
	c.keys = keys
	c.values = values
	return nil
}

// ExpiresAt returns the exp claim. ok is false when the claim is absent.
func (c *Claims) ExpiresAt() (t time.Time, ok bool, err error) {
	return c.Time(ClaimExpiresAt)
}

// NotBefore returns the nbf claim.
func (c *Claims) NotBefore() (time.Time, bool, error) {
	return c.Time(ClaimNotBefore)
}

// IssuedAt returns the iat claim.
func (c *Claims) IssuedAt() (time.Time, bool, error) {
	return c.Time(ClaimIssuedAt)
}

// Time reads a NumericDate claim. A present claim that is not a JSON number
// fails with ErrMalformedToken.
func (c *Claims) Time(name string) (time.Time, bool, error) {
	secs, ok, err := c.numeric(name)
	if !ok || err != nil {
		return time.Time{}, ok, err
	}
	return secondsToTime(secs), true, nil
}

func (c *Claims) numeric(name string) (float64, bool, error) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false, nil
	}
	var f float64
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return float64(i), true, nil
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0, true, fmt.Errorf("%w: claim %q is not a number", ErrMalformedToken, name)
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, true, fmt.Errorf("%w: claim %q is %T, want a number", ErrMalformedToken, name, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, fmt.Errorf("%w: claim %q is not finite", ErrMalformedToken, name)
	}
	return f, true, nil
}

// Audience returns aud as a list; a single string becomes a one element list.
func (c *Claims) Audience() ([]string, bool, error) {
	v, ok := c.Get(ClaimAudience)
	if !ok {
		return nil, false, nil
	}
	switch a := v.(type) {
	case string:
		return []string{a}, true, nil
	case []string:
		out := make([]string, len(a))
		copy(out, a)
		return out, true, nil
	case []any:
		out := make([]string, 0, len(a))
		for _, item := range a {
			s, ok := item.(string)
			if !ok {
				return nil, true, fmt.Errorf("%w: aud contains %T", ErrMalformedToken, item)
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, true, fmt.Errorf("%w: aud is %T", ErrMalformedToken, v)
	}
}

// Issuer returns iss when it is a string.
func (c *Claims) Issuer() (string, bool) { return c.stringClaim(ClaimIssuer) }

// Subject returns sub when it is a string.
func (c *Claims) Subject() (string, bool) { return c.stringClaim(ClaimSubject) }

// JWTID returns jti when it is a string.
func (c *Claims) JWTID() (string, bool) { return c.stringClaim(ClaimJWTID) }

func (c *Claims) stringClaim(name string) (string, bool) {
	v, ok := c.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// decodePayload applies the payload rule: a JSON object becomes *Claims,
// anything else stays Opaque unless forceJSON is set.
func decodePayload(data []byte, forceJSON bool) (Payload, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		claims, err := ParseClaims(data)
		if err == nil {
			return claims, nil
		}
		if forceJSON {
			return nil, fmt.Errorf("%w: payload: %v", ErrMalformedToken, err)
		}
		return Opaque(data), nil
	}
	if forceJSON {
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: payload is not JSON", ErrMalformedToken)
		}
		return nil, fmt.Errorf("%w: payload is JSON but not an object", ErrMalformedToken)
	}
	return Opaque(data), nil
}

func encodePayload(p Payload) ([]byte, error) {
	switch v := p.(type) {
	case Opaque:
		return []byte(v), nil
	case *Claims:
		data, err := v.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayloadShape, err)
		}
		return data, nil
	case nil:
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayloadShape)
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidPayloadShape, p)
	}
}

var errDuplicateMember = errors.New("duplicate object member")

// decodeObject reads exactly one JSON object, keeping member order.
func decodeObject(data []byte) ([]string, map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("not a JSON object")
	}

	keys := make([]string, 0, 8)
	values := make(map[string]any, 8)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, nil, errors.New("object member name is not a string")
		}
		if _, dup := values[name]; dup {
			return nil, nil, fmt.Errorf("%w %q", errDuplicateMember, name)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		keys = append(keys, name)
		values[name] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, errors.New("trailing data after JSON object")
	}
	return keys, values, nil
}
