package cryptobox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	envelopeVersion = 1
	headerLen       = 1 + 2 + 32 + 32 + 4 // version, prekey ID, identity pub, base pub, counter
)

// Session is the sending half of one encryption channel to a single remote
// device. It is established from the device's one-time prekey and advances a
// chain key on every Encrypt, so repeated encryptions of the same plaintext
// yield distinct ciphertexts.
//
// A Session is not safe for concurrent use; the Box hands out one session per
// device and device fan-outs never share a session.
type Session struct {
	preKeyID    uint16
	identityPub [32]byte // sender identity, sent in every envelope
	basePub     [32]byte // ephemeral base key for this session
	chainKey    []byte
	counter     uint32
}

// newSession runs the key agreement against a remote prekey bundle:
// DH(identity, prekey) and DH(ephemeral, prekey) feed an HKDF that seeds the
// sending chain.
func newSession(identity *IdentityKeyPair, preKeyBundle []byte) (*Session, error) {
	id, remotePub, err := parsePreKeyBundle(preKeyBundle)
	if err != nil {
		return nil, err
	}

	var basePriv [32]byte
	if _, err := rand.Read(basePriv[:]); err != nil {
		return nil, fmt.Errorf("cryptobox: session base key: %w", err)
	}
	clampScalar(&basePriv)

	basePub, err := x25519(basePriv, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}

	dh1, err := x25519(identity.Private, remotePub)
	if err != nil {
		return nil, err
	}
	dh2, err := x25519(basePriv, remotePub)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		preKeyID:    id,
		identityPub: identity.Public,
		chainKey:    deriveRootKey(dh1, dh2),
	}
	copy(sess.basePub[:], basePub)
	return sess, nil
}

// Encrypt seals plaintext for the remote device and advances the chain key.
func (sess *Session) Encrypt(plaintext []byte) ([]byte, error) {
	header := make([]byte, 0, headerLen)
	header = append(header, envelopeVersion)
	header = binary.BigEndian.AppendUint16(header, sess.preKeyID)
	header = append(header, sess.identityPub[:]...)
	header = append(header, sess.basePub[:]...)
	header = binary.BigEndian.AppendUint32(header, sess.counter)

	mk := nextMessageKey(&sess.chainKey)
	sealed, err := seal(mk, sess.counter, header, plaintext)
	if err != nil {
		return nil, err
	}
	sess.counter++

	return append(header, sealed...), nil
}

// DecryptPreKeyMessage opens an envelope addressed to one of our published
// prekeys. The prekey private half comes from the store; the session is
// re-derived from the envelope header, so out-of-order delivery within a
// session costs only chain-stepping. Returns the prekey ID the envelope was
// sealed against so the caller can retire the one-time key.
func DecryptPreKeyMessage(store PreKeyStore, envelope []byte) ([]byte, uint16, error) {
	if len(envelope) < headerLen {
		return nil, 0, fmt.Errorf("cryptobox: envelope too short (%d bytes)", len(envelope))
	}
	header := envelope[:headerLen]
	if header[0] != envelopeVersion {
		return nil, 0, fmt.Errorf("cryptobox: unsupported envelope version %d", header[0])
	}

	preKeyID := binary.BigEndian.Uint16(header[1:3])
	identityPub := header[3:35]
	basePub := header[35:67]
	counter := binary.BigEndian.Uint32(header[67:71])

	privBytes, err := store.LoadPreKeyPrivate(preKeyID)
	if err != nil {
		return nil, 0, fmt.Errorf("cryptobox: load prekey %d: %w", preKeyID, err)
	}
	if privBytes == nil {
		return nil, 0, fmt.Errorf("cryptobox: unknown prekey ID %d", preKeyID)
	}
	var priv [32]byte
	copy(priv[:], privBytes)

	dh1, err := x25519(priv, identityPub)
	if err != nil {
		return nil, 0, err
	}
	dh2, err := x25519(priv, basePub)
	if err != nil {
		return nil, 0, err
	}

	chainKey := deriveRootKey(dh1, dh2)
	var mk []byte
	for i := uint32(0); i < counter+1; i++ {
		mk = nextMessageKey(&chainKey)
	}

	plaintext, err := open(mk, counter, header, envelope[headerLen:])
	if err != nil {
		return nil, 0, fmt.Errorf("cryptobox: open envelope: %w", err)
	}
	return plaintext, preKeyID, nil
}

// deriveRootKey turns the two DH outputs into the initial chain key.
func deriveRootKey(dh1, dh2 []byte) []byte {
	ikm := make([]byte, 0, len(dh1)+len(dh2))
	ikm = append(ikm, dh1...)
	ikm = append(ikm, dh2...)

	r := hkdf.New(sha256.New, ikm, nil, []byte("wire-cli/session"))
	root := make([]byte, 32)
	_, _ = io.ReadFull(r, root)
	return root
}

// nextMessageKey derives the message key for the current step and advances
// the chain in place.
func nextMessageKey(chainKey *[]byte) []byte {
	r := hkdf.New(sha256.New, *chainKey, nil, []byte("wire-cli/chain"))
	next := make([]byte, 32)
	mk := make([]byte, 32)
	_, _ = io.ReadFull(r, next)
	_, _ = io.ReadFull(r, mk)
	*chainKey = next
	return mk
}

func seal(mk []byte, counter uint32, ad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: new aead: %w", err)
	}
	return aead.Seal(nil, nonceFor(counter), plaintext, ad), nil
}

func open(mk []byte, counter uint32, ad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(mk)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: new aead: %w", err)
	}
	return aead.Open(nil, nonceFor(counter), ciphertext, ad)
}

func nonceFor(counter uint32) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint32(nonce[chacha20poly1305.NonceSize-4:], counter)
	return nonce
}
