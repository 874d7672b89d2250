// Package wireservice talks to the Wire backend: authentication, client
// management, profile updates, and the encrypted broadcast pipeline with
// mismatch recovery.
package wireservice

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ffflorian/wire-cli/internal/cryptobox"
)

// Service provides high-level access to the Wire backend API.
// It owns the transport, the crypto box, and the session credentials.
type Service struct {
	transport *Transport
	box       *cryptobox.Box
	creds     Credentials
	userID    string
	teamID    string
	clientID  string
	wsURL     string
	tlsConfig *tls.Config
	logger    *log.Logger
}

// ServiceConfig holds configuration for creating a Service.
type ServiceConfig struct {
	BackendURL string
	WSURL      string
	TLSConfig  *tls.Config
	Box        *cryptobox.Box
	Logger     *log.Logger
}

// NewService creates a new Wire backend service. Credentials are empty until
// Login (or SetCredentials for a resumed session).
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		transport: NewTransport(cfg.BackendURL, cfg.TLSConfig, cfg.Logger),
		box:       cfg.Box,
		wsURL:     cfg.WSURL,
		tlsConfig: cfg.TLSConfig,
		logger:    cfg.Logger,
	}
}

// SetCredentials installs a previously obtained token and cookie, plus the
// IDs of the logged-in user. Used when resuming a stored session.
func (s *Service) SetCredentials(creds Credentials, userID, teamID string) {
	s.creds = creds
	s.userID = userID
	s.teamID = teamID
}

// SetClientID sets the registered client acting as message sender.
func (s *Service) SetClientID(clientID string) { s.clientID = clientID }

// Credentials returns the current token and cookie.
func (s *Service) Credentials() Credentials { return s.creds }

// UserID returns the logged-in user's ID.
func (s *Service) UserID() string { return s.userID }

// TeamID returns the logged-in user's team ID ("" when not in a team).
func (s *Service) TeamID() string { return s.teamID }

// ClientID returns the registered sender client ID.
func (s *Service) ClientID() string { return s.clientID }

// logf logs a message if the logger is non-nil.
func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

// BackendError is a non-2xx response from the Wire backend, carrying the
// status code and the server-supplied message and label.
type BackendError struct {
	StatusCode int
	Label      string
	Message    string
}

func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "(no message)"
	}
	return fmt.Sprintf("request failed with status code %d: %s", e.StatusCode, msg)
}

// backendError builds a BackendError from a response body, decoding the
// standard Wire error shape when possible.
func backendError(status int, body []byte) *BackendError {
	var parsed struct {
		Message string `json:"message"`
		Label   string `json:"label"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Message == "" {
		return &BackendError{StatusCode: status, Message: string(body)}
	}
	return &BackendError{StatusCode: status, Label: parsed.Label, Message: parsed.Message}
}

// duplicateUserError reports a user ID occurring in more than one chunk of a
// batched prekey lookup.
type duplicateUserError struct {
	UserID string
}

func (e *duplicateUserError) Error() string {
	return fmt.Sprintf("duplicate user %q across prekey chunks", e.UserID)
}
