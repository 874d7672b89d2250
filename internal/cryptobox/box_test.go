package cryptobox

import (
	"bytes"
	"testing"
)

// mapPreKeyStore is an in-memory PreKeyStore for tests.
type mapPreKeyStore map[uint16][]byte

func (m mapPreKeyStore) LoadPreKeyPrivate(id uint16) ([]byte, error) {
	return m[id], nil
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sender, err := GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}

	prekeys, err := GeneratePreKeys(100, 1)
	if err != nil {
		t.Fatal(err)
	}
	pk := prekeys[0]

	store := mapPreKeyStore{pk.ID: pk.Private}

	box := NewBox(sender)
	sess, err := box.GetOrCreate("user-a@client-1", pk.Bundle)
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte(`{"message_id":"42","text":{"content":"hello"}}`)
	envelope, err := sess.Encrypt(plaintext)
	if err != nil {
		t.Fatal(err)
	}

	got, usedID, err := DecryptPreKeyMessage(store, envelope)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("decrypted: got %q, want %q", got, plaintext)
	}
	if usedID != pk.ID {
		t.Errorf("consumed prekey ID: got %d, want %d", usedID, pk.ID)
	}
}

func TestEncryptTwiceYieldsDistinctCiphertexts(t *testing.T) {
	sender, err := GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	prekeys, err := GeneratePreKeys(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	store := mapPreKeyStore{prekeys[0].ID: prekeys[0].Private}

	box := NewBox(sender)
	sess, err := box.GetOrCreate("u@c", prekeys[0].Bundle)
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte("same plaintext")
	first, err := sess.Encrypt(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	second, err := sess.Encrypt(plaintext)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(first, second) {
		t.Error("expected chain advance to produce distinct ciphertexts")
	}

	// Both must still decrypt.
	for i, env := range [][]byte{first, second} {
		got, _, err := DecryptPreKeyMessage(store, env)
		if err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("message %d: got %q", i, got)
		}
	}
}

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	sender, err := GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	prekeys, err := GeneratePreKeys(7, 1)
	if err != nil {
		t.Fatal(err)
	}

	box := NewBox(sender)
	first, err := box.GetOrCreate("u@c", prekeys[0].Bundle)
	if err != nil {
		t.Fatal(err)
	}
	// Second call passes a garbage bundle: it must be ignored.
	second, err := box.GetOrCreate("u@c", nil)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected the same session instance")
	}
	if !box.HasSession("u@c") {
		t.Error("expected session to be tracked")
	}

	box.DeleteSession("u@c")
	if box.HasSession("u@c") {
		t.Error("expected session to be gone after delete")
	}
}

func TestDecryptUnknownPreKey(t *testing.T) {
	sender, err := GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	prekeys, err := GeneratePreKeys(3, 1)
	if err != nil {
		t.Fatal(err)
	}

	box := NewBox(sender)
	sess, err := box.GetOrCreate("u@c", prekeys[0].Bundle)
	if err != nil {
		t.Fatal(err)
	}
	envelope, err := sess.Encrypt([]byte("hi"))
	if err != nil {
		t.Fatal(err)
	}

	// Store without the matching prekey.
	if _, _, err := DecryptPreKeyMessage(mapPreKeyStore{}, envelope); err == nil {
		t.Error("expected error for unknown prekey ID")
	}
}

func TestGeneratePreKeys(t *testing.T) {
	prekeys, err := GeneratePreKeys(10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(prekeys) != 5 {
		t.Fatalf("count: got %d", len(prekeys))
	}
	for i, pk := range prekeys {
		if pk.ID != uint16(10+i) {
			t.Errorf("prekey %d: ID got %d, want %d", i, pk.ID, 10+i)
		}
		id, pub, err := parsePreKeyBundle(pk.Bundle)
		if err != nil {
			t.Fatal(err)
		}
		if id != pk.ID {
			t.Errorf("bundle ID: got %d, want %d", id, pk.ID)
		}
		if len(pub) != 32 {
			t.Errorf("public key length: got %d", len(pub))
		}
	}

	last, err := GenerateLastResortKey()
	if err != nil {
		t.Fatal(err)
	}
	if last.ID != LastResortID {
		t.Errorf("last resort ID: got %d, want %d", last.ID, LastResortID)
	}
}
