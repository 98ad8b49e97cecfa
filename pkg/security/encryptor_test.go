package security

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/hadoop835/iggy/pkg/apperror"
)

func newTestEncryptor(t *testing.T) *XChaChaEncryptor {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	enc, err := NewXChaChaEncryptor(key)
	if err != nil {
		t.Fatalf("NewXChaChaEncryptor() error = %v", err)
	}
	return enc
}

func TestXChaChaEncryptor_RoundTrip(t *testing.T) {
	enc := newTestEncryptor(t)
	plaintext := []byte("the message payload")

	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("Encrypt() returned the plaintext unchanged")
	}

	got, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("Decrypt() = %q, want %q", got, plaintext)
	}
}

func TestXChaChaEncryptor_EncryptIsNonDeterministic(t *testing.T) {
	enc := newTestEncryptor(t)
	plaintext := []byte("same message twice")

	a, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	b, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two Encrypt() calls on the same plaintext produced identical ciphertext")
	}
}

func TestXChaChaEncryptor_DecryptRejectsTamperedCiphertext(t *testing.T) {
	enc := newTestEncryptor(t)
	ciphertext, err := enc.Encrypt([]byte("untampered"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF

	if _, err := enc.Decrypt(ciphertext); apperror.KindOf(err) != apperror.KindCannotDecryptData {
		t.Fatalf("Decrypt(tampered) kind = %v, want CannotDecryptData", apperror.KindOf(err))
	}
}

func TestXChaChaEncryptor_DecryptRejectsShortInput(t *testing.T) {
	enc := newTestEncryptor(t)
	if _, err := enc.Decrypt([]byte("short")); apperror.KindOf(err) != apperror.KindCannotDecryptData {
		t.Fatalf("Decrypt(short) kind = %v, want CannotDecryptData", apperror.KindOf(err))
	}
}
