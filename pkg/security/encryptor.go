package security

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/hadoop835/iggy/pkg/apperror"
)

// Encryptor encrypts and decrypts message payloads. The append pipeline
// calls Encrypt before delegating to the SegmentStore; the poll pipeline
// calls Decrypt after reading back. Round-tripping Encrypt then Decrypt
// always returns the original plaintext.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// XChaChaEncryptor is the default Encryptor: XChaCha20-Poly1305 with a
// random 24-byte nonce prepended to the ciphertext on Encrypt, and stripped
// back off on Decrypt.
type XChaChaEncryptor struct {
	aead cipher.AEAD
}

var _ Encryptor = (*XChaChaEncryptor)(nil)

// NewXChaChaEncryptor builds an XChaChaEncryptor from a 32-byte key.
func NewXChaChaEncryptor(key []byte) (*XChaChaEncryptor, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("security: new XChaCha20-Poly1305 aead: %w", err)
	}
	return &XChaChaEncryptor{aead: aead}, nil
}

// Encrypt seals plaintext with a freshly generated random nonce and
// prepends that nonce to the returned ciphertext.
func (e *XChaChaEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, apperror.Newf(apperror.KindCannotEncryptData, "generate nonce: %v", err)
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt strips the leading nonce from ciphertext and opens the remainder.
func (e *XChaChaEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, apperror.New(apperror.KindCannotDecryptData, "ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, apperror.Newf(apperror.KindCannotDecryptData, "open: %v", err)
	}
	return plaintext, nil
}
