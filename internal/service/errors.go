package service

import "errors"

// Flow specific errors used by handlers for stable response mapping.
// NeedsVerification and PendingApproval are distinguishable on purpose:
// the error kind is part of the login contract, not just a message.
var (
	ErrNeedsVerification = errors.New("needs_verification")
	ErrPendingApproval   = errors.New("pending_approval")
	ErrInvalidLogin      = errors.New("invalid_login")
	ErrLoginCodeInvalid  = errors.New("login_code_invalid")
	ErrLoginCodeExpired  = errors.New("login_code_expired")

	ErrCodeNotValid      = errors.New("code_not_valid")
	ErrCodeAlreadyUsed   = errors.New("code_already_used")
	ErrCodeNotConfigured = errors.New("code_not_configured")

	ErrGoogleTokenVerificationFailed = errors.New("google_token_verification_failed")
)
