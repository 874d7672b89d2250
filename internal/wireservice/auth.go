package wireservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Login authenticates with email and password. On success the Service holds
// the bearer token and zuid cookie for subsequent requests.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenData, error) {
	body, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login: marshal request: %w", err)
	}

	resp, err := s.transport.PostResponse(ctx, "/login", body, nil)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("login: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backendError(resp.StatusCode, respBody)
	}

	var token TokenData
	if err := json.Unmarshal(respBody, &token); err != nil {
		return nil, fmt.Errorf("login: unmarshal response: %w", err)
	}

	zuid := zuidCookie(resp)
	if zuid == "" {
		logf(s.logger, "login: no zuid cookie received from server")
	}

	s.creds = Credentials{
		TokenType:   token.TokenType,
		AccessToken: token.AccessToken,
		Cookie:      zuid,
	}
	s.userID = token.User

	logf(s.logger, "login: user=%s expires_in=%d", token.User, token.ExpiresIn)
	return &token, nil
}

// RefreshToken obtains a fresh access token using the zuid cookie.
// The refreshed token replaces the current one before returning, so requests
// issued afterwards always see the new value.
func (s *Service) RefreshToken(ctx context.Context) (*TokenData, error) {
	if s.creds.Cookie == "" {
		return nil, fmt.Errorf("refresh token: no cookie, login first")
	}

	body, status, err := s.transport.Post(ctx, "/access", nil, &s.creds)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if status != http.StatusOK {
		return nil, backendError(status, body)
	}

	var token TokenData
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("refresh token: unmarshal response: %w", err)
	}

	s.creds.TokenType = token.TokenType
	s.creds.AccessToken = token.AccessToken
	return &token, nil
}

// Logout invalidates the current token and cookie.
func (s *Service) Logout(ctx context.Context) error {
	if s.creds.AccessToken == "" {
		return fmt.Errorf("logout: no access token, login first")
	}

	body, status, err := s.transport.Post(ctx, "/access/logout", nil, &s.creds)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return backendError(status, body)
	}

	s.creds = Credentials{}
	return nil
}

// zuidCookie extracts the zuid session cookie from a login response.
func zuidCookie(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == "zuid" {
			return c.Value
		}
	}
	return ""
}
