package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrUnauthenticated    = fmt.Errorf("unauthenticated")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrUntrustedIdentity  = fmt.Errorf("connection has no trusted user identifier")

	ErrInvalidRequest = fmt.Errorf("invalid request")
	ErrEmptyMessage   = fmt.Errorf("message needs a text or an image")

	ErrUpload           = fmt.Errorf("image upload failed")
	ErrUnsupportedMedia = fmt.Errorf("unsupported media type")
	ErrMediaTooLarge    = fmt.Errorf("media exceeds maximum size")

	ErrBufferFull       = fmt.Errorf("outbound buffer full")
	ErrConnectionClosed = fmt.Errorf("connection closed")
	ErrMalformedEvent   = fmt.Errorf("malformed event")
	ErrUnknownEvent     = fmt.Errorf("unknown event type")
)
