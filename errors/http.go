package errors

import (
	"errors"
	"net/http"
)

// HTTPStatus maps a service error to the status code returned by the REST surface.
// Anything unknown is an internal error.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrUnsupportedMedia):
		return http.StatusBadRequest
	case errors.Is(err, ErrMediaTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides internal details behind a generic message.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		if errors.Is(err, ErrUpload) {
			return "Error uploading image"
		}
		return "Internal Server Error"
	}
	return err.Error()
}
