package app

import "errors"

var (
	ErrNotJoined        = errors.New("connection has not joined a room")
	ErrIdentityMismatch = errors.New("message identity does not match connection")
	ErrConnectionClosed = errors.New("connection closed")
)

// Error codes sent in error_message payloads
const (
	ErrCodeInvalidMessage  = "INVALID_MESSAGE"
	ErrCodeNotAllowed      = "NOT_ALLOWED"
	ErrCodeUnknownSequence = "UNKNOWN_SEQUENCE"
	ErrCodeSessionReplaced = "SESSION_REPLACED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)
