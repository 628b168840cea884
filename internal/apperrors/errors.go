package apperrors

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Error is a flat (numeric code, HTTP status, message) triple. Handlers reply
// with the status and serialize the code+message in the response body.
type Error struct {
	Code    int    `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// Auth concern
var (
	ErrMissingAuthHeader   = &Error{Code: 1001, Status: http.StatusUnauthorized, Message: "missing Authorization header"}
	ErrMalformedAuthHeader = &Error{Code: 1002, Status: http.StatusUnauthorized, Message: "invalid Authorization header"}
	ErrInvalidToken        = &Error{Code: 1003, Status: http.StatusUnauthorized, Message: "invalid or expired token"}
	ErrAdminRequired       = &Error{Code: 1004, Status: http.StatusForbidden, Message: "admin privilege required"}
	ErrUserNotFound        = &Error{Code: 1005, Status: http.StatusNotFound, Message: "user not found"}
	ErrEmailAlreadyExists  = &Error{Code: 1006, Status: http.StatusConflict, Message: "email already exists"}
	ErrInvalidSession      = &Error{Code: 1007, Status: http.StatusUnauthorized, Message: "invalid session cookie"}
	ErrSessionExpired      = &Error{Code: 1008, Status: http.StatusUnauthorized, Message: "session cookie expired"}
	ErrInvalidArgument     = &Error{Code: 1009, Status: http.StatusBadRequest, Message: "invalid argument"}
)

// Watchlist-app concern
var (
	ErrMovieNotFound  = &Error{Code: 3001, Status: http.StatusNotFound, Message: "movie not found"}
	ErrEntryNotFound  = &Error{Code: 3002, Status: http.StatusNotFound, Message: "watchlist entry not found"}
	ErrInvalidStatus  = &Error{Code: 3003, Status: http.StatusBadRequest, Message: "invalid watchlist status"}
	ErrInvalidRating  = &Error{Code: 3004, Status: http.StatusBadRequest, Message: "rating must be between 1 and 10"}
	ErrMediaUnready   = &Error{Code: 3005, Status: http.StatusServiceUnavailable, Message: "media storage not configured"}
	ErrPosterNotFound = &Error{Code: 3006, Status: http.StatusNotFound, Message: "no poster uploaded"}
)

// Internal concern
var (
	ErrProviderUnavailable = &Error{Code: 2001, Status: http.StatusServiceUnavailable, Message: "identity provider unavailable"}
	ErrInternal            = &Error{Code: 2002, Status: http.StatusInternalServerError, Message: "internal error"}
)

// providerCodes maps provider error code strings to local constants.
var providerCodes = map[string]*Error{
	"auth/email-already-exists":   ErrEmailAlreadyExists,
	"auth/user-not-found":         ErrUserNotFound,
	"auth/invalid-session-cookie": ErrInvalidSession,
	"auth/session-cookie-expired": ErrSessionExpired,
	"auth/argument-error":         ErrInvalidArgument,
	"auth/id-token-expired":       ErrInvalidToken,
	"auth/invalid-id-token":       ErrInvalidToken,
}

// FromCode resolves a provider error-code string ("auth/email-already-exists").
func FromCode(code string) (*Error, bool) {
	e, ok := providerCodes[strings.TrimSpace(code)]
	return e, ok
}

// FromProvider translates an arbitrary provider/driver error into the local
// enumeration. Unmatched errors fall back to the generic internal error.
func FromProvider(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrUserNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailAlreadyExists
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrProviderUnavailable
	}
	// provider SDK errors carry their code in the message ("auth/..." style)
	msg := err.Error()
	for code, e := range providerCodes {
		if strings.Contains(msg, code) {
			return e
		}
	}
	return ErrInternal
}
