package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (never reveals account state)
// - Meta: optional details (field, roles, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Codes that callers branch on.
const (
	CodeInvalidCredentials   = "invalid_credentials"
	CodeTokenInvalid         = "token_invalid"
	CodeInvalidRoles         = "invalid_roles"
	CodeUserNotFound         = "user_not_found"
	CodePasswordUnchanged    = "password_unchanged"
	CodePasswordMismatch     = "password_mismatch"
	CodePasswordResetFailed  = "password_reset_failed"
	CodePasswordChangeFailed = "password_change_failed"
	CodeDuplicateIdentifier  = "duplicate_identifier"
	CodeDuplicateEmail       = "duplicate_email"
	CodeRoleAssignmentFailed = "role_assignment_failed"
	CodeValidationFailed     = "validation_failed"
)

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

// ErrValidation carries field -> message pairs produced by request validation.
func ErrValidation(violations map[string]string) *Error {
	return WithMeta(New(KindValidation, CodeValidationFailed, "request validation failed"), violations)
}

// ErrInvalidRoles echoes back the unknown role names; role names are not secret.
func ErrInvalidRoles(names []string) *Error {
	joined := strings.Join(names, ", ")
	return WithMeta(
		New(KindValidation, CodeInvalidRoles, "invalid roles found: "+joined+"."),
		map[string]string{"roles": joined},
	)
}

func ErrPasswordUnchanged() *Error {
	return New(KindValidation, CodePasswordUnchanged, "new password must differ from the current password")
}

func ErrPasswordMismatch() *Error {
	return New(KindValidation, CodePasswordMismatch, "new password and confirmation do not match")
}

func ErrPasswordResetFailed() *Error {
	return New(KindValidation, CodePasswordResetFailed, "could not reset password")
}

func ErrPasswordChangeFailed() *Error {
	return New(KindValidation, CodePasswordChangeFailed, "could not change password")
}

// ----------------------
// Auth errors (401)
// ----------------------

// IMPORTANT: every login failure (unknown identifier, inactive account,
// wrong password, no acceptable role) must use this exact error.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "invalid identifier or password")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "no token provided")
}

// ErrTokenInvalid merges malformed, expired, mismatched and unknown-subject tokens.
func ErrTokenInvalid() *Error {
	return New(KindAuth, CodeTokenInvalid, "access/refresh token invalid or expired")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrForbidden() *Error {
	return New(KindForbidden, "forbidden", "forbidden")
}

func ErrInsufficientRole(required string) *Error {
	return WithMeta(New(KindForbidden, "insufficient_role", "insufficient role"), map[string]string{
		"required": required,
	})
}

// ----------------------
// Not Found (404)
// ----------------------

// ErrUserNotFound is intentionally specific: only the recovery and
// admin-lookup paths use it.
func ErrUserNotFound() *Error {
	return New(KindNotFound, CodeUserNotFound, "user not found, check and retry")
}

func ErrResetTokenNotFound() *Error {
	return New(KindNotFound, "reset_token_not_found", "reset token not found")
}

// ----------------------
// Conflict (409)
// ----------------------

func ErrDuplicateIdentifier() *Error {
	return New(KindConflict, CodeDuplicateIdentifier, "identifier already in use")
}

func ErrDuplicateEmail() *Error {
	return New(KindConflict, CodeDuplicateEmail, "email already in use")
}

// ----------------------
// Rate limited (429)
// ----------------------

func ErrRateLimited(route string) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests, retry later"), map[string]string{
		"route": route,
	})
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "redis_unavailable", "cache unavailable", cause)
}

func ErrRabbitUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "rabbit_unavailable", "message broker unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrRoleAssignmentFailed(cause error) *Error {
	return Wrap(KindInternal, CodeRoleAssignmentFailed,
		"could not assign the requested roles, contact support and retry", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
