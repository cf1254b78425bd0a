package goJWT

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Strict rejects non-zero trailing bits, so every segment has exactly one
// valid spelling and a flipped bit cannot decode to the same bytes.
var segmentEncoding = base64.RawURLEncoding.Strict()

// maxTokenLength bounds the input accepted by Verify and Decode.
const maxTokenLength = 64 << 10

// EncodeSegment returns the unpadded base64url form of b.
func EncodeSegment(b []byte) string {
	return segmentEncoding.EncodeToString(b)
}

// DecodeSegment decodes an unpadded base64url segment. Padding characters,
// characters outside the URL alphabet and non-canonical trailing bits all
// fail with ErrDecoding.
func DecodeSegment(s string) ([]byte, error) {
	if strings.ContainsAny(s, "=\r\n") {
		return nil, fmt.Errorf("%w: unexpected padding or line break", ErrDecoding)
	}
	b, err := segmentEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	return b, nil
}

// marshalJSON encodes v without HTML escaping and without the trailing
// newline json.Encoder adds.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// splitToken performs the structural stage: three segments, header and
// payload non-empty.
func splitToken(token string) (parts [3]string, err error) {
	if token == "" {
		return parts, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}
	if len(token) > maxTokenLength {
		return parts, fmt.Errorf("%w: token exceeds %d bytes", ErrMalformedToken, maxTokenLength)
	}
	if strings.Count(token, ".") != 2 {
		return parts, fmt.Errorf("%w: token must have three segments", ErrMalformedToken)
	}

	first := strings.IndexByte(token, '.')
	second := first + 1 + strings.IndexByte(token[first+1:], '.')
	parts[0] = token[:first]
	parts[1] = token[first+1 : second]
	parts[2] = token[second+1:]

	if parts[0] == "" || parts[1] == "" {
		return parts, fmt.Errorf("%w: empty header or payload segment", ErrMalformedToken)
	}
	return parts, nil
}
