package adminweb

import "errors"

var (
	// ErrUnauthorized reports a caller lacking the manage capability.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidRequest reports a missing action or a bad anti-forgery token.
	ErrInvalidRequest = errors.New("invalid request")
)

const (
	unauthorizedMessage   = "You do not have sufficient permissions to access this page."
	invalidRequestMessage = "Something looks wrong here."
	rateLimitedMessage    = "Too many imports started recently. Wait a minute and try again."
)
