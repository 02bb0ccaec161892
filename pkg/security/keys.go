package security

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keyLength = 32

// ErrMissingNonce is returned when key derivation is attempted without both
// nonces.
var ErrMissingNonce = errors.New("both client and server nonce are required")

// KeyMaterial holds the directional keys derived for a session.
type KeyMaterial struct {
	ClientSigningKey    []byte
	ClientEncryptingKey []byte
	ServerSigningKey    []byte
	ServerEncryptingKey []byte
}

// NewNonce returns length cryptographically random bytes.
func NewNonce(length int) []byte {
	nonce := make([]byte, length)
	if _, err := rand.Read(nonce); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return nonce
}

// DeriveKeys derives session key material from the nonce pair. Client keys
// use the server nonce as salt and vice versa, so both sides compute the
// same material from the same exchange.
func DeriveKeys(clientNonce, serverNonce []byte) (*KeyMaterial, error) {
	if len(clientNonce) == 0 || len(serverNonce) == 0 {
		return nil, ErrMissingNonce
	}

	clientKeys, err := expand(clientNonce, serverNonce, "client")
	if err != nil {
		return nil, err
	}
	serverKeys, err := expand(serverNonce, clientNonce, "server")
	if err != nil {
		return nil, err
	}

	return &KeyMaterial{
		ClientSigningKey:    clientKeys[:keyLength],
		ClientEncryptingKey: clientKeys[keyLength:],
		ServerSigningKey:    serverKeys[:keyLength],
		ServerEncryptingKey: serverKeys[keyLength:],
	}, nil
}

func expand(secret, salt []byte, info string) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, salt, []byte(info))
	keys := make([]byte, 2*keyLength)
	if _, err := io.ReadFull(reader, keys); err != nil {
		return nil, err
	}
	return keys, nil
}
