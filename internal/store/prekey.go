package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ffflorian/wire-cli/internal/cryptobox"
)

// StorePreKeys persists generated prekeys (private half plus the serialized
// public bundle) so incoming sessions can be accepted later.
func (s *Store) StorePreKeys(keys []cryptobox.PreKey) error {
	for _, pk := range keys {
		_, err := s.db.Exec(
			"INSERT OR REPLACE INTO pre_key (id, private, bundle) VALUES (?, ?, ?)",
			pk.ID, pk.Private, pk.Bundle,
		)
		if err != nil {
			return fmt.Errorf("store: store prekey %d: %w", pk.ID, err)
		}
	}
	return nil
}

// LoadPreKeyPrivate returns the private key for the given prekey ID, or nil
// if the ID is unknown. Implements cryptobox.PreKeyStore.
func (s *Store) LoadPreKeyPrivate(id uint16) ([]byte, error) {
	var private []byte
	err := s.db.QueryRow(
		"SELECT private FROM pre_key WHERE id = ?", id,
	).Scan(&private)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: load prekey: %w", err)
	}
	return private, nil
}

// RemovePreKey deletes a prekey. One-time prekeys are removed after first
// use; the last-resort key is kept.
func (s *Store) RemovePreKey(id uint16) error {
	if id == cryptobox.LastResortID {
		return nil
	}
	_, err := s.db.Exec("DELETE FROM pre_key WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: remove prekey: %w", err)
	}
	return nil
}

// PreKeyCount returns the number of stored prekeys, including the
// last-resort key.
func (s *Store) PreKeyCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM pre_key").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count prekeys: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ cryptobox.PreKeyStore = (*Store)(nil)
