package cryptobox

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// LastResortID is the prekey ID reserved for the last-resort key. The backend
// hands it out when a client has exhausted its one-time prekeys.
const LastResortID = 0xFFFF

const (
	preKeyVersion = 1
	preKeyLen     = 1 + 2 + 32 // version, ID, X25519 public key
)

// PreKey is one published prekey: the serialized public bundle plus the
// private half, which stays local so incoming sessions can be accepted.
type PreKey struct {
	ID      uint16
	Bundle  []byte // what gets uploaded: version | id | public key
	Private []byte // 32 bytes, persisted locally
}

// GeneratePreKeys creates n prekeys with consecutive IDs starting at start.
func GeneratePreKeys(start uint16, n int) ([]PreKey, error) {
	keys := make([]PreKey, 0, n)
	for i := 0; i < n; i++ {
		pk, err := generatePreKey(start + uint16(i))
		if err != nil {
			return nil, err
		}
		keys = append(keys, pk)
	}
	return keys, nil
}

// GenerateLastResortKey creates the prekey with the reserved last-resort ID.
func GenerateLastResortKey() (PreKey, error) {
	return generatePreKey(LastResortID)
}

func generatePreKey(id uint16) (PreKey, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return PreKey{}, fmt.Errorf("cryptobox: generate prekey %d: %w", id, err)
	}
	clampScalar(&priv)

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return PreKey{}, fmt.Errorf("cryptobox: prekey %d public key: %w", id, err)
	}

	bundle := make([]byte, 0, preKeyLen)
	bundle = append(bundle, preKeyVersion)
	bundle = binary.BigEndian.AppendUint16(bundle, id)
	bundle = append(bundle, pub...)

	return PreKey{ID: id, Bundle: bundle, Private: priv[:]}, nil
}

// parsePreKeyBundle extracts the ID and public key from a serialized bundle.
func parsePreKeyBundle(bundle []byte) (id uint16, pub []byte, err error) {
	if len(bundle) != preKeyLen {
		return 0, nil, fmt.Errorf("cryptobox: bad prekey bundle length %d", len(bundle))
	}
	if bundle[0] != preKeyVersion {
		return 0, nil, fmt.Errorf("cryptobox: unsupported prekey version %d", bundle[0])
	}
	return binary.BigEndian.Uint16(bundle[1:3]), bundle[3:], nil
}

// PreKeyStore provides the private halves of previously published prekeys.
// Implemented by the local credential store.
type PreKeyStore interface {
	// LoadPreKeyPrivate returns the private key for the given prekey ID,
	// or nil if the ID is unknown.
	LoadPreKeyPrivate(id uint16) ([]byte, error)
}
