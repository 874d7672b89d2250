package wireservice

import (
	"encoding/base64"
	"sync"
)

// Ciphertext is one device's encrypted payload. Failed marks a device whose
// encryption failed locally; the transport substitutes a sentinel payload for
// it so the rest of the broadcast is unaffected.
type Ciphertext struct {
	Data   []byte
	Failed bool
}

// Recipients maps user ID to client ID to ciphertext. This is the encryption
// output and, base64-encoded, the broadcast wire payload.
type Recipients map[string]map[string]Ciphertext

// sessionID builds the session key for one remote device.
func sessionID(userID, clientID string) string {
	return userID + "@" + clientID
}

// EncryptForDevices encrypts plaintext for every device in the bundle map,
// one session per device, fanning out across devices. A per-device failure is
// logged and recorded as a failed ciphertext; it never aborts the fan-out.
func (s *Service) EncryptForDevices(plaintext []byte, bundles PreKeyBundleMap) Recipients {
	recipients := make(Recipients, len(bundles))
	for userID, clients := range bundles {
		recipients[userID] = make(map[string]Ciphertext, len(clients))
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for userID, clients := range bundles {
		for clientID, prekey := range clients {
			userID, clientID, prekey := userID, clientID, prekey
			wg.Add(1)
			go func() {
				defer wg.Done()
				ct := s.encryptForDevice(sessionID(userID, clientID), plaintext, prekey)

				mu.Lock()
				recipients[userID][clientID] = ct
				mu.Unlock()
			}()
		}
	}
	wg.Wait()

	return recipients
}

// encryptForDevice encrypts plaintext for a single device, creating the
// session from its prekey on first use.
func (s *Service) encryptForDevice(id string, plaintext []byte, prekey PreKeyEntity) Ciphertext {
	bundle, err := base64.StdEncoding.DecodeString(prekey.Key)
	if err != nil {
		logf(s.logger, "encrypt %s: decode prekey: %v", id, err)
		return Ciphertext{Failed: true}
	}

	sess, err := s.box.GetOrCreate(id, bundle)
	if err != nil {
		logf(s.logger, "encrypt %s: %v", id, err)
		return Ciphertext{Failed: true}
	}

	data, err := sess.Encrypt(plaintext)
	if err != nil {
		logf(s.logger, "encrypt %s: %v", id, err)
		return Ciphertext{Failed: true}
	}
	return Ciphertext{Data: data}
}
