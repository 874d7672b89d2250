package wireservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetSelf fetches the logged-in user's profile and caches the team ID for
// broadcasts.
func (s *Service) GetSelf(ctx context.Context) (*SelfUser, error) {
	body, status, err := s.transport.Get(ctx, "/self", &s.creds)
	if err != nil {
		return nil, fmt.Errorf("get self: %w", err)
	}
	if status != http.StatusOK {
		return nil, backendError(status, body)
	}

	var self SelfUser
	if err := json.Unmarshal(body, &self); err != nil {
		return nil, fmt.Errorf("get self: unmarshal response: %w", err)
	}

	s.userID = self.ID
	s.teamID = self.TeamID
	return &self, nil
}

// UpdateSelf updates profile fields of the logged-in user.
func (s *Service) UpdateSelf(ctx context.Context, update *SelfUpdate) error {
	body, status, err := s.transport.PutJSON(ctx, "/self", update, &s.creds)
	if err != nil {
		return fmt.Errorf("update self: %w", err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return backendError(status, body)
	}
	return nil
}

// UpdateEmail starts an email change for the logged-in user. The backend
// answers 202 and mails a verification link to the new address.
func (s *Service) UpdateEmail(ctx context.Context, email string) error {
	body, status, err := s.transport.PutJSON(ctx, "/self/email", EmailUpdate{Email: email}, &s.creds)
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	if status != http.StatusOK && status != http.StatusAccepted && status != http.StatusNoContent {
		return backendError(status, body)
	}
	return nil
}

// InitiatePasswordReset requests a password reset email. The backend answers
// 201 when the reset was initiated.
func (s *Service) InitiatePasswordReset(ctx context.Context, email string) error {
	body, status, err := s.transport.PostJSON(ctx, "/password-reset", PasswordResetRequest{Email: email}, nil)
	if err != nil {
		return fmt.Errorf("initiate password reset: %w", err)
	}
	if status != http.StatusCreated {
		return backendError(status, body)
	}
	return nil
}

// CompletePasswordReset redeems an emailed reset code for a new password.
func (s *Service) CompletePasswordReset(ctx context.Context, email, code, newPassword string) error {
	req := PasswordResetCompletion{Code: code, Email: email, Password: newPassword}
	body, status, err := s.transport.PostJSON(ctx, "/password-reset/complete", req, nil)
	if err != nil {
		return fmt.Errorf("complete password reset: %w", err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return backendError(status, body)
	}
	return nil
}
