// Package cryptobox implements the session encryption used for Wire OTR
// payloads: X25519 key agreement against a recipient's one-time prekey,
// an HKDF chain key per session, and ChaCha20-Poly1305 sealing.
//
// Sessions are keyed by an opaque string ID ("{userId}@{clientId}") and are
// created explicitly via Box.GetOrCreate, making the first-use-creates
// contract visible to callers.
package cryptobox

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// IdentityKeyPair is a long-term X25519 key pair identifying one client.
type IdentityKeyPair struct {
	Private [32]byte
	Public  [32]byte
}

// GenerateIdentity creates a new X25519 identity key pair.
func GenerateIdentity() (*IdentityKeyPair, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, fmt.Errorf("cryptobox: generate identity: %w", err)
	}
	clampScalar(&priv)

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: derive identity public key: %w", err)
	}

	kp := &IdentityKeyPair{Private: priv}
	copy(kp.Public[:], pub)
	return kp, nil
}

// LoadIdentity reconstructs an identity key pair from its serialized halves.
func LoadIdentity(private, public []byte) (*IdentityKeyPair, error) {
	if len(private) != 32 || len(public) != 32 {
		return nil, fmt.Errorf("cryptobox: bad identity key length: priv=%d pub=%d", len(private), len(public))
	}
	kp := &IdentityKeyPair{}
	copy(kp.Private[:], private)
	copy(kp.Public[:], public)
	return kp, nil
}

// clampScalar applies the X25519 private key clamping.
func clampScalar(k *[32]byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

func x25519(priv [32]byte, pub []byte) ([]byte, error) {
	out, err := curve25519.X25519(priv[:], pub)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: x25519: %w", err)
	}
	return out, nil
}
