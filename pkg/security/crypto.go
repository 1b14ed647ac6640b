// Package security holds the symmetric token cipher used by the SSO
// session broadcaster. One 32-byte key is generated on first use and
// persisted next to the application data; every process on the machine
// shares it. Ciphertexts are nonce|ct AES-256-GCM blobs and are not
// rekeyable.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"hangarcore/pkg/logger"
)

// KeyFileName is the on-disk name of the symmetric key file.
const KeyFileName = "secret.key"

const keySize = 32

// Keeper owns the persisted symmetric key.
type Keeper struct {
	key  []byte
	path string
}

// LoadOrCreateKey loads the key file under dir, generating and persisting a
// fresh 32-byte key when none exists. Key file I/O failure here is one of
// the two fatal-to-process conditions; callers abort on error.
func LoadOrCreateKey(dir string) (*Keeper, error) {
	path := filepath.Join(dir, KeyFileName)
	if b, err := os.ReadFile(path); err == nil {
		if len(b) != keySize {
			return nil, fmt.Errorf("key file %s is %d bytes, want %d", path, len(b), keySize)
		}
		return &Keeper{key: b, path: path}, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key dir %s: %w", dir, err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write key file %s: %w", path, err)
	}
	logger.Log.Info("secret_key_created", zap.String("path", path))
	return &Keeper{key: key, path: path}, nil
}

// Encrypt returns nonce|ciphertext using AES-256-GCM.
func (k *Keeper) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := gcm.Seal(nil, nonce, plaintext, nil)
	// Prepend nonce for storage
	return append(nonce, out...), nil
}

// Decrypt expects nonce|ciphertext.
func (k *Keeper) Decrypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	ns := gcm.NonceSize()
	if len(data) < ns {
		return nil, errors.New("ciphertext too short")
	}
	return gcm.Open(nil, data[:ns], data[ns:], nil)
}

// EncryptToken encrypts an opaque credential and base64-encodes the blob
// for transport in the retained session document.
func (k *Keeper) EncryptToken(token string) (string, error) {
	ct, err := k.Encrypt([]byte(token))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptToken reverses EncryptToken. A failure means the payload was
// written by another machine's key or is corrupt; callers fall through to
// the login screen.
func (k *Keeper) DecryptToken(encoded string) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("token not base64: %w", err)
	}
	pt, err := k.Decrypt(ct)
	if err != nil {
		return "", fmt.Errorf("token decrypt failed: %w", err)
	}
	return string(pt), nil
}
