package revocation

import "errors"

var (
	// ErrUnavailable is returned when Redis cannot be reached or answers with an error.
	ErrUnavailable = errors.New("revocation store unavailable")
	// ErrEmptyTokenID is returned for an empty jti.
	ErrEmptyTokenID = errors.New("empty token id")
)
