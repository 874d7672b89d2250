// Package wirecli provides a high-level client for sending end-to-end
// encrypted broadcasts over the Wire messenger backend.
package wirecli

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/ffflorian/wire-cli/internal/cryptobox"
	"github.com/ffflorian/wire-cli/internal/store"
	"github.com/ffflorian/wire-cli/internal/wireservice"
)

// Envelope is a received, decrypted message.
type Envelope = wireservice.Envelope

// AvailabilityType enumerates the availability states.
type AvailabilityType = wireservice.AvailabilityType

// ClientMismatch is the backend's per-broadcast device report.
type ClientMismatch = wireservice.ClientMismatch

const (
	defaultBackendURL = "https://prod-nginz-https.wire.com"
	defaultWSURL      = "wss://prod-nginz-ssl.wire.com"

	// preKeyCount is how many one-time prekeys a new client publishes.
	preKeyCount = 100
)

// Client is the main entry point for interacting with Wire.
type Client struct {
	backendURL string
	wsURL      string
	tlsConfig  *tls.Config
	dbPath     string
	logger     *log.Logger
	dryRun     bool

	email    string
	userID   string
	teamID   string
	clientID string

	store   *store.Store
	box     *cryptobox.Box
	service *wireservice.Service
}

// Option configures a Client.
type Option func(*Client)

// WithBackendURL overrides the default Wire backend REST URL.
func WithBackendURL(url string) Option {
	return func(c *Client) { c.backendURL = strings.TrimSuffix(url, "/") }
}

// WithWSURL overrides the default notification WebSocket URL.
func WithWSURL(url string) Option {
	return func(c *Client) { c.wsURL = strings.TrimSuffix(url, "/") }
}

// WithTLSConfig overrides the TLS configuration used for connections.
func WithTLSConfig(tc *tls.Config) Option {
	return func(c *Client) { c.tlsConfig = tc }
}

// WithDBPath overrides the database path for persistent storage.
// If not set, defaults to $XDG_DATA_HOME/wire-cli/<email>.db after login.
func WithDBPath(path string) Option {
	return func(c *Client) { c.dbPath = path }
}

// WithLogger sets the logger for verbose output.
// If not set, logging is disabled.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithDryRun makes the client log in and out normally but skip every
// mutating backend call: no client registration, no broadcasts, no profile
// or client changes.
func WithDryRun() Option {
	return func(c *Client) { c.dryRun = true }
}

// NewClient creates a new Wire client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		backendURL: defaultBackendURL,
		wsURL:      defaultWSURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// initService creates the Service once the crypto box exists (called from
// Login/Open after the identity is known).
func (c *Client) initService() {
	c.service = wireservice.NewService(wireservice.ServiceConfig{
		BackendURL: c.backendURL,
		WSURL:      c.wsURL,
		TLSConfig:  c.tlsConfig,
		Box:        c.box,
		Logger:     c.logger,
	})
}

// logf logs a message if the logger is non-nil.
func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

// dbPathFor derives a per-account database path from an email address.
func dbPathFor(email string) string {
	name := strings.NewReplacer("@", "_", "/", "_").Replace(email)
	return filepath.Join(store.DefaultDataDir(), name+".db")
}

// ParseAvailabilityType validates a user-supplied availability name.
func ParseAvailabilityType(s string) (AvailabilityType, error) {
	return wireservice.ParseAvailabilityType(s)
}

// InitiatePasswordReset requests a password reset email. No login required.
func InitiatePasswordReset(ctx context.Context, email string, opts ...Option) error {
	c := NewClient(opts...)
	svc := wireservice.NewService(wireservice.ServiceConfig{
		BackendURL: c.backendURL,
		TLSConfig:  c.tlsConfig,
		Logger:     c.logger,
	})
	return svc.InitiatePasswordReset(ctx, email)
}

// CompletePasswordReset redeems an emailed reset code for a new password.
// No login required.
func CompletePasswordReset(ctx context.Context, email, code, newPassword string, opts ...Option) error {
	c := NewClient(opts...)
	svc := wireservice.NewService(wireservice.ServiceConfig{
		BackendURL: c.backendURL,
		TLSConfig:  c.tlsConfig,
		Logger:     c.logger,
	})
	return svc.CompletePasswordReset(ctx, email, code, newPassword)
}

// Login authenticates with email and password, persisting credentials and
// the client identity so later invocations can resume without a password.
func (c *Client) Login(ctx context.Context, email, password string) error {
	if c.dbPath == "" {
		c.dbPath = dbPathFor(email)
	}

	st, err := store.Open(c.dbPath)
	if err != nil {
		return fmt.Errorf("client: open store: %w", err)
	}
	c.store = st
	c.email = email

	acct, err := st.LoadAccount()
	if err != nil {
		return err
	}

	var identity *cryptobox.IdentityKeyPair
	if acct != nil && len(acct.IdentityPrivate) == 32 {
		identity, err = cryptobox.LoadIdentity(acct.IdentityPrivate, acct.IdentityPublic)
	} else {
		identity, err = cryptobox.GenerateIdentity()
	}
	if err != nil {
		return fmt.Errorf("client: identity: %w", err)
	}
	c.box = cryptobox.NewBox(identity)
	c.initService()

	if _, err := c.service.Login(ctx, email, password); err != nil {
		return err
	}

	self, err := c.service.GetSelf(ctx)
	if err != nil {
		return err
	}
	c.userID = self.ID
	c.teamID = self.TeamID

	if acct != nil && acct.ClientID != "" {
		c.clientID = acct.ClientID
		c.service.SetClientID(acct.ClientID)
	}

	logf(c.logger, "logged in as %s (user=%s team=%s)", email, c.userID, c.teamID)
	return c.saveAccount()
}

// Open resumes a previously stored session for the given email, without a
// password. Fails if no login was persisted or the stored token is unusable.
func Open(ctx context.Context, email string, opts ...Option) (*Client, error) {
	c := NewClient(opts...)
	if c.dbPath == "" {
		c.dbPath = dbPathFor(email)
	}

	st, err := store.Open(c.dbPath)
	if err != nil {
		return nil, fmt.Errorf("client: open store: %w", err)
	}
	c.store = st

	acct, err := st.LoadAccount()
	if err != nil {
		return nil, err
	}
	if acct == nil {
		st.Close()
		return nil, fmt.Errorf("client: no stored session for %s, login first", email)
	}

	identity, err := cryptobox.LoadIdentity(acct.IdentityPrivate, acct.IdentityPublic)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("client: identity: %w", err)
	}

	c.email = acct.Email
	c.userID = acct.UserID
	c.teamID = acct.TeamID
	c.clientID = acct.ClientID
	if acct.BackendURL != "" {
		c.backendURL = acct.BackendURL
	}
	c.box = cryptobox.NewBox(identity)
	c.initService()

	c.service.SetCredentials(wireservice.Credentials{
		TokenType:   acct.TokenType,
		AccessToken: acct.AccessToken,
		Cookie:      acct.Cookie,
	}, acct.UserID, acct.TeamID)
	c.service.SetClientID(acct.ClientID)

	// Stored access tokens are short-lived; refresh via the cookie.
	if _, err := c.service.RefreshToken(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("client: refresh session: %w", err)
	}
	return c, c.saveAccount()
}

// ClientRegistered reports whether the stored sender client still exists on
// the backend.
func (c *Client) ClientRegistered(ctx context.Context) bool {
	if c.clientID == "" {
		return false
	}
	_, err := c.service.GetClient(ctx, c.clientID)
	return err == nil
}

// EnsureClient makes sure a sender client is registered, creating a
// temporary one with fresh prekeys when none exists yet. The account
// password confirms the registration.
func (c *Client) EnsureClient(ctx context.Context, password string) error {
	if c.clientID != "" {
		if c.ClientRegistered(ctx) {
			return nil
		}
		logf(c.logger, "stored client %s no longer registered, creating a new one", c.clientID)
		c.clientID = ""
	}

	if c.dryRun {
		logf(c.logger, "dry run: skipping client registration")
		return nil
	}

	preKeys, err := cryptobox.GeneratePreKeys(0, preKeyCount)
	if err != nil {
		return err
	}
	lastResort, err := cryptobox.GenerateLastResortKey()
	if err != nil {
		return err
	}
	if err := c.store.StorePreKeys(append(preKeys, lastResort)); err != nil {
		return err
	}

	req := &wireservice.NewClientRequest{
		Type:     "temporary",
		Class:    "desktop",
		Label:    "wire-cli",
		Model:    "wire-cli",
		Password: password,
		PreKeys:  preKeyEntities(preKeys),
		LastKey:  preKeyEntity(lastResort),
	}
	client, err := c.service.RegisterClient(ctx, req)
	if err != nil {
		return err
	}

	c.clientID = client.ID
	return c.saveAccount()
}

// SendText broadcasts a text message to every device of every team member.
func (c *Client) SendText(ctx context.Context, text string) error {
	if c.teamID == "" {
		return fmt.Errorf("client: account is not part of a team")
	}
	if c.dryRun {
		logf(c.logger, "dry run: skipping broadcast of %d bytes of text", len(text))
		return nil
	}
	_, err := c.service.BroadcastText(ctx, c.teamID, text)
	return err
}

// SetAvailability broadcasts an availability status to the team.
func (c *Client) SetAvailability(ctx context.Context, t AvailabilityType) error {
	if c.teamID == "" {
		return fmt.Errorf("client: account is not part of a team")
	}
	if c.dryRun {
		logf(c.logger, "dry run: skipping availability broadcast (%s)", t)
		return nil
	}
	_, err := c.service.BroadcastAvailability(ctx, c.teamID, t)
	return err
}

// SetName updates the account's display name.
func (c *Client) SetName(ctx context.Context, name string) error {
	if c.dryRun {
		logf(c.logger, "dry run: skipping display name update")
		return nil
	}
	return c.service.UpdateSelf(ctx, &wireservice.SelfUpdate{Name: name})
}

// SetEmail starts changing the account's email address. The backend sends a
// verification mail to the new address; the change completes out of band.
func (c *Client) SetEmail(ctx context.Context, email string) error {
	if c.dryRun {
		logf(c.logger, "dry run: skipping email update")
		return nil
	}
	return c.service.UpdateEmail(ctx, email)
}

// Self returns the logged-in user's profile.
func (c *Client) Self(ctx context.Context) (*wireservice.SelfUser, error) {
	return c.service.GetSelf(ctx)
}

// Clients lists all registered clients of the account.
func (c *Client) Clients(ctx context.Context) ([]wireservice.Client, error) {
	return c.service.GetClients(ctx)
}

// DeleteAllClients removes every registered client of the account, including
// the stored sender client. Returns the number of deleted clients.
func (c *Client) DeleteAllClients(ctx context.Context, password string) (int, error) {
	if c.dryRun {
		clients, err := c.service.GetClients(ctx)
		if err != nil {
			return 0, err
		}
		logf(c.logger, "dry run: skipping deletion of %d client(s)", len(clients))
		return 0, nil
	}
	n, err := c.service.DeleteAllClients(ctx, password)
	if err != nil {
		return n, err
	}
	c.clientID = ""
	c.service.SetClientID("")
	return n, c.saveAccount()
}

// Listen streams decrypted incoming messages to handler until ctx is
// cancelled.
func (c *Client) Listen(ctx context.Context, handler func(*Envelope)) error {
	return c.service.Listen(ctx, c.store, wireservice.EventHandler(handler))
}

// Logout invalidates the session on the backend and forgets the stored
// token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.service.Logout(ctx); err != nil {
		return err
	}
	return c.saveAccount()
}

// Close releases the local store. The client is unusable afterwards.
func (c *Client) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// saveAccount persists the current session state.
func (c *Client) saveAccount() error {
	identity := c.box.Identity()
	creds := c.service.Credentials()
	return c.store.SaveAccount(&store.Account{
		BackendURL:      c.backendURL,
		Email:           c.email,
		UserID:          c.userID,
		TeamID:          c.teamID,
		ClientID:        c.clientID,
		AccessToken:     creds.AccessToken,
		TokenType:       creds.TokenType,
		Cookie:          creds.Cookie,
		IdentityPrivate: identity.Private[:],
		IdentityPublic:  identity.Public[:],
	})
}

// preKeyEntity converts a generated prekey to its upload shape.
func preKeyEntity(pk cryptobox.PreKey) wireservice.PreKeyEntity {
	return wireservice.PreKeyEntity{
		ID:  int(pk.ID),
		Key: base64Bundle(pk),
	}
}

func base64Bundle(pk cryptobox.PreKey) string {
	return base64.StdEncoding.EncodeToString(pk.Bundle)
}

func preKeyEntities(keys []cryptobox.PreKey) []wireservice.PreKeyEntity {
	out := make([]wireservice.PreKeyEntity, 0, len(keys))
	for _, pk := range keys {
		out = append(out, preKeyEntity(pk))
	}
	return out
}
