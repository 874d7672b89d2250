package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ffflorian/wire-cli/internal/cryptobox"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Fatal("directory should have been created")
	}
}

func TestAccountSaveLoad(t *testing.T) {
	s := tempStore(t)

	// Loading with no account returns nil.
	acct, err := s.LoadAccount()
	if err != nil {
		t.Fatal(err)
	}
	if acct != nil {
		t.Fatal("expected nil account")
	}

	want := &Account{
		BackendURL:      "https://staging-nginz-https.zinfra.io",
		Email:           "user@example.com",
		UserID:          "user-uuid",
		TeamID:          "team-uuid",
		ClientID:        "a1b2c3d4e5f6",
		AccessToken:     "token",
		TokenType:       "Bearer",
		Cookie:          "cookie-value",
		IdentityPrivate: []byte{1, 2, 3},
		IdentityPublic:  []byte{4, 5, 6},
	}
	if err := s.SaveAccount(want); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadAccount()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected account")
	}
	if got.Email != want.Email || got.ClientID != want.ClientID || got.Cookie != want.Cookie {
		t.Errorf("got %+v", got)
	}
	if !bytes.Equal(got.IdentityPrivate, want.IdentityPrivate) {
		t.Error("identity private key mismatch")
	}

	// Save again overwrites.
	want.ClientID = "ffffffffffff"
	if err := s.SaveAccount(want); err != nil {
		t.Fatal(err)
	}
	got, err = s.LoadAccount()
	if err != nil {
		t.Fatal(err)
	}
	if got.ClientID != "ffffffffffff" {
		t.Errorf("clientId after overwrite: got %q", got.ClientID)
	}

	if err := s.DeleteAccount(); err != nil {
		t.Fatal(err)
	}
	got, err = s.LoadAccount()
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected nil account after delete")
	}
}

func TestPreKeyStorage(t *testing.T) {
	s := tempStore(t)

	keys, err := cryptobox.GeneratePreKeys(0, 3)
	if err != nil {
		t.Fatal(err)
	}
	last, err := cryptobox.GenerateLastResortKey()
	if err != nil {
		t.Fatal(err)
	}
	keys = append(keys, last)

	if err := s.StorePreKeys(keys); err != nil {
		t.Fatal(err)
	}

	n, err := s.PreKeyCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("count: got %d, want 4", n)
	}

	priv, err := s.LoadPreKeyPrivate(1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(priv, keys[1].Private) {
		t.Error("private key mismatch")
	}

	// Unknown ID yields nil, nil.
	priv, err = s.LoadPreKeyPrivate(999)
	if err != nil {
		t.Fatal(err)
	}
	if priv != nil {
		t.Error("expected nil for unknown ID")
	}

	// One-time keys are removed, the last-resort key is not.
	if err := s.RemovePreKey(1); err != nil {
		t.Fatal(err)
	}
	if priv, _ := s.LoadPreKeyPrivate(1); priv != nil {
		t.Error("expected prekey 1 to be removed")
	}
	if err := s.RemovePreKey(cryptobox.LastResortID); err != nil {
		t.Fatal(err)
	}
	if priv, _ := s.LoadPreKeyPrivate(cryptobox.LastResortID); priv == nil {
		t.Error("last-resort key must survive removal")
	}
}
