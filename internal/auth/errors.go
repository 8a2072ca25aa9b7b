package auth

import (
	"net/http"

	"github.com/samber/oops"
)

// Error codes carried by every error the Service returns.
const (
	CodeValidation   = "AUTH_VALIDATION"
	CodeConflict     = "AUTH_CONFLICT"
	CodeCredentials  = "AUTH_UNAUTHORIZED"
	CodeTokenInvalid = "AUTH_TOKEN_INVALID"
	CodeDelivery     = "AUTH_DELIVERY"
	CodeInternal     = "AUTH_INTERNAL"
)

// Messages returned to clients.
const (
	MsgMissingFields    = "please fill in all fields"
	MsgBadEmail         = "invalid email format"
	MsgPasswordTooShort = "password must be at least 8 characters"
	MsgPasswordPolicy   = "password must include at least 1 uppercase letter, 1 lowercase letter, 1 digit and 1 special character"
	MsgPasswordMismatch = "passwords do not match"
	MsgEmailExists      = "email already exists"
	MsgNoSuchEmail      = "email does not exist"
	MsgBadCredentials   = "incorrect password"
	MsgResetExpired     = "reset link has expired"
	MsgNoToken          = "no token"
	MsgBadToken         = "invalid token"
	MsgNoUser           = "no user"
	MsgMailPermission   = "insufficient mail permission"
	MsgResetFailed      = "unable to reset password"
	MsgInternal         = "internal server error"
)

const publicKey = "public"

func validationError(msg string) error {
	return oops.Code(CodeValidation).Errorf("%s", msg)
}

func credentialsError(msg string) error {
	return oops.Code(CodeCredentials).Errorf("%s", msg)
}

func tokenError(msg string) error {
	return oops.Code(CodeTokenInvalid).Errorf("%s", msg)
}

// internalError wraps an unexpected failure. public is what the client sees in place of err.
func internalError(operation, public string, err error) error {
	return oops.Code(CodeInternal).
		With("operation", operation).
		With(publicKey, public).
		Wrap(err)
}

// Code returns the error code of err, or CodeInternal for errors this package did not produce.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok && code != "" {
			return code
		}
	}
	return CodeInternal
}

// HTTPStatus maps err to the response status.
func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeValidation, CodeConflict, CodeCredentials:
		return http.StatusBadRequest
	case CodeTokenInvalid:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a message that is safe to show a client.
// Server-side failures never expose the underlying error text.
func PublicMessage(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return MsgInternal
	}
	switch Code(err) {
	case CodeValidation, CodeConflict, CodeCredentials, CodeTokenInvalid:
		return oopsErr.Error()
	case CodeDelivery:
		return MsgMailPermission
	}
	if msg, ok := oopsErr.Context()[publicKey].(string); ok && msg != "" {
		return msg
	}
	return MsgInternal
}
