package state_handler

import "errors"

// Errors returned by Generate and Verify.
var (
	ErrorShortNonce    = errors.New("state_handler: short read generating nonce")
	ErrorNoStateCookie = errors.New("state_handler: no state cookie in request")
	ErrorStateMismatch = errors.New("state_handler: state does not match")
)
