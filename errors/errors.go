package errors

import "fmt"

var (
	// Channel handshake failures are fatal to the channel.
	ErrAuth = fmt.Errorf("authentication rejected")

	// Channel-local operation failures. The channel stays open and the
	// error is never broadcast to other participants.
	ErrValidation          = fmt.Errorf("invalid event payload")
	ErrForbidden           = fmt.Errorf("forbidden")
	ErrMalformedAttachment = fmt.Errorf("malformed attachment envelope")
	ErrStorageUnavailable  = fmt.Errorf("storage unavailable")
	ErrUnknownEvent        = fmt.Errorf("unknown event type")

	ErrNotFound           = fmt.Errorf("not found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrEngineClosed  = fmt.Errorf("sync engine closed")
	ErrChannelClosed = fmt.Errorf("channel closed")
)
