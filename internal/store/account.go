package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Account holds everything needed to authenticate and send after a login:
// backend credentials, the registered client ID, and the client's identity
// key pair.
type Account struct {
	BackendURL string `json:"backendUrl"`
	Email      string `json:"email"`
	UserID     string `json:"userId"`
	TeamID     string `json:"teamId,omitempty"`
	ClientID   string `json:"clientId,omitempty"`

	AccessToken string `json:"accessToken,omitempty"`
	TokenType   string `json:"tokenType,omitempty"`
	Cookie      string `json:"cookie,omitempty"` // zuid cookie value

	IdentityPrivate []byte `json:"identityPrivate,omitempty"`
	IdentityPublic  []byte `json:"identityPublic,omitempty"`
}

const accountKey = "account"

// SaveAccount persists the account record.
func (s *Store) SaveAccount(acct *Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("store: marshal account: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO account (key, value) VALUES (?, ?)",
		accountKey, data,
	)
	if err != nil {
		return fmt.Errorf("store: save account: %w", err)
	}
	return nil
}

// LoadAccount loads the account record.
// Returns nil, nil if no account has been saved.
func (s *Store) LoadAccount() (*Account, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT value FROM account WHERE key = ?", accountKey,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: load account: %w", err)
	}

	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("store: unmarshal account: %w", err)
	}
	return &acct, nil
}

// DeleteAccount removes the stored account record, if any.
func (s *Store) DeleteAccount() error {
	_, err := s.db.Exec("DELETE FROM account WHERE key = ?", accountKey)
	if err != nil {
		return fmt.Errorf("store: delete account: %w", err)
	}
	return nil
}
