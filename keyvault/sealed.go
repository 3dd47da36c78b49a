package keyvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
)

const (
	sealSaltSize  = 16
	sealNonceSize = 12
)

var (
	// ErrSealedShareCorrupted indicates the sealed blob is too short or
	// structurally invalid.
	ErrSealedShareCorrupted = errors.New("sealed share corrupted")

	// ErrWrongPassphrase indicates authenticated decryption failed, which
	// means either the passphrase is wrong or the blob was tampered with.
	ErrWrongPassphrase = errors.New("wrong passphrase or tampered share")
)

// deriveSealKey derives a 256-bit AES key from a passphrase using Argon2id.
// Parameters: time=1, memory=64*1024, threads=4, keyLen=32
func deriveSealKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// SealShare encrypts a key share under a passphrase-derived key.
// The returned blob layout is salt || nonce || ciphertext.
func SealShare(share threshold.KeyShare, passphrase []byte) ([]byte, error) {
	plaintext, err := json.Marshal(share)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize share: %w", err)
	}

	salt := make([]byte, sealSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, sealNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesBlock, err := aes.NewCipher(deriveSealKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	sealed := make([]byte, 0, sealSaltSize+sealNonceSize+len(ciphertext))
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce...)
	sealed = append(sealed, ciphertext...)

	return sealed, nil
}

// OpenShare decrypts a sealed key share with the given passphrase.
func OpenShare(sealed, passphrase []byte) (threshold.KeyShare, error) {
	if len(sealed) < sealSaltSize+sealNonceSize+1 {
		return threshold.KeyShare{}, ErrSealedShareCorrupted
	}

	salt := sealed[:sealSaltSize]
	nonce := sealed[sealSaltSize : sealSaltSize+sealNonceSize]
	ciphertext := sealed[sealSaltSize+sealNonceSize:]

	aesBlock, err := aes.NewCipher(deriveSealKey(passphrase, salt))
	if err != nil {
		return threshold.KeyShare{}, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(aesBlock)
	if err != nil {
		return threshold.KeyShare{}, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return threshold.KeyShare{}, ErrWrongPassphrase
	}

	var share threshold.KeyShare
	if err := json.Unmarshal(plaintext, &share); err != nil {
		return threshold.KeyShare{}, fmt.Errorf("failed to deserialize share: %w", err)
	}

	return share, nil
}
