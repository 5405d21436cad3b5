package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown username and wrong
	// password so the login path cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountLocked indicates too many failed logins in a row.
	ErrAccountLocked = errors.New("account temporarily locked")

	// ErrExpired indicates the credential's expiry has passed.
	ErrExpired = errors.New("session expired")

	// ErrInvalidToken indicates an unknown or malformed credential.
	ErrInvalidToken = errors.New("invalid session credential")

	// ErrForbidden indicates the caller is neither owner nor admin.
	ErrForbidden = errors.New("access forbidden")

	// ErrUnknownUser is returned by the password-reset flow for
	// usernames that do not exist.
	ErrUnknownUser = errors.New("user not found")

	// ErrUserExists indicates a registration against a taken username.
	ErrUserExists = errors.New("username already exists")

	// ErrNoResetRequested indicates a reset completion without a prior
	// successful reset request for that username.
	ErrNoResetRequested = errors.New("no password reset requested")
)
