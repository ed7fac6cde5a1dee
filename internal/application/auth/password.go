package auth

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// EncodeResetToken makes store-issued reset tokens safe for a query string.
func EncodeResetToken(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeResetToken(encoded string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(encoded)
}

// ResetLink builds {origin}{path}?email=..&token=.. with escaped values.
func ResetLink(origin, path, email, encodedToken string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", encodedToken)
	return strings.TrimRight(origin, "/") + path + "?" + q.Encode()
}

// ForgotPassword issues a reset token and hands a link off to the mailer.
// Unknown emails are reported as user_not_found.
func (s *Service) ForgotPassword(ctx context.Context, email, origin string) error {
	const action = "password.forgot"
	email = strings.TrimSpace(email)

	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		s.auditResult(action, 0, err, map[string]string{"email": email})
		return err
	}

	token, err := s.store.IssueResetToken(ctx, u)
	if err != nil {
		s.auditResult(action, u.ID, err, nil)
		return err
	}

	err = s.mailer.SendPasswordReset(ctx, PasswordResetEvent{
		UserID:   u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		URL:      ResetLink(origin, s.resetPath, u.Email, EncodeResetToken([]byte(token))),
	})
	s.auditResult(action, u.ID, err, nil)
	return err
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, email, encodedToken, newPassword string) error {
	const action = "password.reset"

	userID, err := s.resetPassword(ctx, strings.TrimSpace(email), encodedToken, newPassword)
	s.auditResult(action, userID, err, nil)
	return err
}

func (s *Service) resetPassword(ctx context.Context, email, encodedToken, newPassword string) (int64, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return 0, err
	}

	same, err := s.store.VerifyPassword(ctx, u, newPassword)
	if err != nil {
		return u.ID, err
	}
	if same {
		return u.ID, domain.ErrPasswordUnchanged()
	}

	raw, err := DecodeResetToken(encodedToken)
	if err != nil {
		return u.ID, domain.ErrPasswordResetFailed()
	}

	if err := s.store.ConsumeResetToken(ctx, u, string(raw), newPassword); err != nil {
		s.log.Debug().Err(err).Int64("user_id", u.ID).Msg("reset token rejected")
		return u.ID, domain.ErrPasswordResetFailed()
	}
	return u.ID, nil
}

// ChangePassword replaces the password of an authenticated user and clears
// the default-password flag.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, newPassword, confirm string) error {
	const action = "password.change"

	err := s.changePassword(ctx, userID, current, newPassword, confirm)
	s.auditResult(action, userID, err, nil)
	return err
}

func (s *Service) changePassword(ctx context.Context, userID int64, current, newPassword, confirm string) error {
	if newPassword != confirm {
		return domain.ErrPasswordMismatch()
	}

	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	same, err := s.store.VerifyPassword(ctx, u, newPassword)
	if err != nil {
		return err
	}
	if same {
		return domain.ErrPasswordUnchanged()
	}

	ok, err := s.store.VerifyPassword(ctx, u, current)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPasswordChangeFailed()
	}

	if err := s.store.SetPassword(ctx, u.ID, newPassword); err != nil {
		s.log.Warn().Err(err).Int64("user_id", u.ID).Msg("set password failed")
		return domain.ErrPasswordChangeFailed()
	}

	u.IsDefaultPassword = false
	return s.store.Update(ctx, u)
}
