package goJWT

import (
	"fmt"
)

// DecodedToken is a token split into its parts.
type DecodedToken struct {
	Header    Header
	Payload   Payload
	Signature []byte
	// Raw holds the three segments exactly as they appeared in the token.
	Raw [3]string
}

// SigningInput returns the bytes the signature covers.
func (t *DecodedToken) SigningInput() string {
	return t.Raw[0] + "." + t.Raw[1]
}

// Claims returns the payload as *Claims when it is a JSON object.
func (t *DecodedToken) Claims() (*Claims, bool) {
	c, ok := t.Payload.(*Claims)
	return c, ok
}

// Decode returns the payload of token WITHOUT checking the signature or any
// claim. Never use the result to make a trust decision; use Verify.
func Decode(token string, opts DecodeOptions) (Payload, error) {
	t, err := DecodeComplete(token, opts)
	if err != nil {
		return nil, err
	}
	return t.Payload, nil
}

// DecodeComplete is Decode returning the header and signature as well. The
// same warning applies: nothing here is authenticated.
func DecodeComplete(token string, opts DecodeOptions) (*DecodedToken, error) {
	return decodeToken(token, opts.JSON)
}

func decodeToken(token string, forceJSON bool) (*DecodedToken, error) {
	parts, err := splitToken(token)
	if err != nil {
		return nil, err
	}

	headerJSON, err := DecodeSegment(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedToken, err)
	}
	header, err := parseHeader(headerJSON)
	if err != nil {
		return nil, err
	}

	payloadJSON, err := DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrMalformedToken, err)
	}
	payload, err := decodePayload(payloadJSON, forceJSON)
	if err != nil {
		return nil, err
	}

	sig, err := DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %w", ErrMalformedToken, err)
	}

	return &DecodedToken{
		Header:    header,
		Payload:   payload,
		Signature: sig,
		Raw:       parts,
	}, nil
}
