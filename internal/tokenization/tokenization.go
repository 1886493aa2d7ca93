package tokenization

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/vaultline/bankcore/internal/apierror"
)

// Decrypter turns an inbound ciphertext field into plaintext.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// TokenizationService encrypts and decrypts request fields with AES-GCM.
// Tokens are base64(nonce || sealed).
type TokenizationService struct {
	gcm cipher.AEAD
}

// NewTokenizationService builds the service from a raw AES key (16, 24 or 32 bytes).
func NewTokenizationService(key []byte) (*TokenizationService, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrCryptographic, "invalid encryption key", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrCryptographic, "failed to initialise cipher", err)
	}

	return &TokenizationService{gcm: gcm}, nil
}

// NewTokenizationServiceFromHex decodes a hex encoded key, as stored in config.
func NewTokenizationServiceFromHex(hexKey string) (*TokenizationService, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrCryptographic, "encryption key is not valid hex", err)
	}
	return NewTokenizationService(key)
}

func (s *TokenizationService) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", apierror.NewAPIError(apierror.ErrCryptographic, "failed to generate nonce", err)
	}

	sealed := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *TokenizationService) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrCryptographic, "ciphertext is not valid base64", err)
	}

	nonceSize := s.gcm.NonceSize()
	if len(data) < nonceSize+s.gcm.Overhead() {
		return "", apierror.NewAPIError(apierror.ErrCryptographic, "ciphertext too short", nil)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", apierror.NewAPIError(apierror.ErrCryptographic, "failed to decrypt", fmt.Errorf("gcm open: %w", err))
	}

	return string(plaintext), nil
}
