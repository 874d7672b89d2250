package wireservice

import (
	"encoding/base64"
	"testing"

	"github.com/ffflorian/wire-cli/internal/cryptobox"
)

// memPreKeySource is an in-memory PreKeySource for handler tests.
type memPreKeySource struct {
	keys    map[uint16][]byte
	removed []uint16
}

func (m *memPreKeySource) LoadPreKeyPrivate(id uint16) ([]byte, error) {
	return m.keys[id], nil
}

func (m *memPreKeySource) RemovePreKey(id uint16) error {
	if id == cryptobox.LastResortID {
		return nil
	}
	delete(m.keys, id)
	m.removed = append(m.removed, id)
	return nil
}

func (m *memPreKeySource) PreKeyCount() (int, error) {
	return len(m.keys), nil
}

// encryptedEvent builds an otr-message-add event carrying msg sealed against
// the given prekey.
func encryptedEvent(t *testing.T, pk cryptobox.PreKey, recipient string, msg *GenericMessage) *event {
	t.Helper()
	sender, err := cryptobox.GenerateIdentity()
	if err != nil {
		t.Fatal(err)
	}
	sess, err := cryptobox.NewBox(sender).GetOrCreate("peer@device", pk.Bundle)
	if err != nil {
		t.Fatal(err)
	}
	plaintext, err := msg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	envelope, err := sess.Encrypt(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	return &event{
		Type:         "conversation.otr-message-add",
		Conversation: "conv-1",
		From:         "peer",
		Time:         "2026-08-31T12:00:00Z",
		Data: &eventData{
			Sender:    "device",
			Recipient: recipient,
			Text:      base64.StdEncoding.EncodeToString(envelope),
		},
	}
}

func TestHandleEventDecryptsAndRetiresPreKey(t *testing.T) {
	pks, err := cryptobox.GeneratePreKeys(42, 1)
	if err != nil {
		t.Fatal(err)
	}
	pk := pks[0]
	source := &memPreKeySource{keys: map[uint16][]byte{pk.ID: pk.Private}}

	svc := newTestService(t, "http://ignored")
	ev := encryptedEvent(t, pk, svc.ClientID(), NewTextMessage("hi there"))

	var got *Envelope
	svc.handleEvent(source, ev, func(env *Envelope) { got = env })

	if got == nil {
		t.Fatal("handler not called")
	}
	if got.Message.Text == nil || got.Message.Text.Content != "hi there" {
		t.Errorf("decrypted message = %+v", got.Message)
	}
	if got.From != "peer" || got.SenderClient != "device" {
		t.Errorf("envelope metadata = %+v", got)
	}
	if len(source.removed) != 1 || source.removed[0] != pk.ID {
		t.Errorf("retired prekeys = %v, want [%d]", source.removed, pk.ID)
	}
}

func TestHandleEventIgnoresOtherRecipients(t *testing.T) {
	pks, err := cryptobox.GeneratePreKeys(7, 1)
	if err != nil {
		t.Fatal(err)
	}
	source := &memPreKeySource{keys: map[uint16][]byte{pks[0].ID: pks[0].Private}}

	svc := newTestService(t, "http://ignored")
	ev := encryptedEvent(t, pks[0], "someone-elses-client", NewTextMessage("not for us"))

	called := false
	svc.handleEvent(source, ev, func(*Envelope) { called = true })

	if called {
		t.Error("handler called for a foreign recipient")
	}
	if len(source.removed) != 0 {
		t.Errorf("prekeys retired for a skipped event: %v", source.removed)
	}
}

func TestHandleEventSkipsUndecryptable(t *testing.T) {
	source := &memPreKeySource{keys: map[uint16][]byte{}}

	svc := newTestService(t, "http://ignored")
	ev := &event{
		Type: "conversation.otr-message-add",
		From: "peer",
		Data: &eventData{
			Sender:    "device",
			Recipient: svc.ClientID(),
			Text:      base64.StdEncoding.EncodeToString([]byte("garbage")),
		},
	}

	called := false
	svc.handleEvent(source, ev, func(*Envelope) { called = true })

	if called {
		t.Error("handler called for an undecryptable event")
	}
	if len(source.removed) != 0 {
		t.Errorf("prekeys retired for a failed decrypt: %v", source.removed)
	}
}
