package wireservice

import (
	"encoding/base64"
	"testing"

	"github.com/ffflorian/wire-cli/internal/cryptobox"
)

func testPreKeyEntity(t *testing.T, id uint16) PreKeyEntity {
	t.Helper()
	pks, err := cryptobox.GeneratePreKeys(id, 1)
	if err != nil {
		t.Fatal(err)
	}
	return PreKeyEntity{ID: int(id), Key: base64.StdEncoding.EncodeToString(pks[0].Bundle)}
}

func TestEncryptForDevicesCoversEveryDevice(t *testing.T) {
	svc := newTestService(t, "http://ignored")
	bundles := PreKeyBundleMap{
		"alice": {
			"a1": testPreKeyEntity(t, 1),
			"a2": testPreKeyEntity(t, 2),
		},
		"bob": {
			"b1": testPreKeyEntity(t, 3),
		},
	}

	recipients := svc.EncryptForDevices([]byte("hello"), bundles)

	for userID, clients := range bundles {
		for clientID := range clients {
			ct, ok := recipients[userID][clientID]
			if !ok {
				t.Fatalf("no ciphertext for %s/%s", userID, clientID)
			}
			if ct.Failed {
				t.Errorf("%s/%s: encryption failed", userID, clientID)
			}
			if len(ct.Data) == 0 {
				t.Errorf("%s/%s: empty ciphertext", userID, clientID)
			}
		}
	}
}

func TestEncryptForDevicesIsolatesFailures(t *testing.T) {
	svc := newTestService(t, "http://ignored")
	bundles := PreKeyBundleMap{
		"alice": {
			"good": testPreKeyEntity(t, 1),
			"bad":  {ID: 2, Key: "not base64!!"},
		},
	}

	recipients := svc.EncryptForDevices([]byte("hello"), bundles)

	if !recipients["alice"]["bad"].Failed {
		t.Error("bad prekey did not yield a failed ciphertext")
	}
	good := recipients["alice"]["good"]
	if good.Failed || len(good.Data) == 0 {
		t.Error("failure of one device affected another")
	}
}

func TestEncryptForDevicesKeepsEmptyUsers(t *testing.T) {
	svc := newTestService(t, "http://ignored")
	bundles := PreKeyBundleMap{
		"alice":      {"a1": testPreKeyEntity(t, 1)},
		"clientless": {},
	}

	recipients := svc.EncryptForDevices([]byte("hello"), bundles)

	clients, ok := recipients["clientless"]
	if !ok {
		t.Fatal("user without clients missing from recipients")
	}
	if len(clients) != 0 {
		t.Errorf("user without clients got %d ciphertexts", len(clients))
	}
}

func TestEncryptForDevicesReusesSession(t *testing.T) {
	svc := newTestService(t, "http://ignored")
	bundles := PreKeyBundleMap{"alice": {"a1": testPreKeyEntity(t, 1)}}

	first := svc.EncryptForDevices([]byte("one"), bundles)
	second := svc.EncryptForDevices([]byte("two"), bundles)

	if first["alice"]["a1"].Failed || second["alice"]["a1"].Failed {
		t.Fatal("encryption failed")
	}
	if string(first["alice"]["a1"].Data) == string(second["alice"]["a1"].Data) {
		t.Error("two messages produced identical ciphertext")
	}
	if !svc.box.HasSession(sessionID("alice", "a1")) {
		t.Error("session not retained between broadcasts")
	}
}
