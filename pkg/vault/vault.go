// Package vault encrypts user-supplied provider credentials at rest.
//
// The vault is schema-blind: it operates on serialized strings and opaque
// blobs. Serialization of structured credentials happens in the resolver, on
// either side of the vault seam.
package vault

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
)

// ErrDecryption indicates a malformed blob or a key that cannot open it
// (typically after an incompatible key rotation).
var ErrDecryption = errors.New("vault: decryption failed")

// scryptWorkFactor is passed to age's scrypt recipient. The vault key is
// high-entropy machine material injected at process start, not a human
// passphrase, so a low work factor keeps per-request decryption cheap
// without weakening the construction.
const scryptWorkFactor = 12

// Vault performs symmetric encryption of credential strings using age's
// scrypt-based passphrase construction.
type Vault struct {
	key string
}

// New creates a vault around the process-wide encryption key.
func New(key string) (*Vault, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("vault: encryption key is required")
	}
	return &Vault{key: key}, nil
}

// Encrypt seals plaintext into an opaque blob. decrypt(encrypt(x)) == x for
// all x.
func (v *Vault) Encrypt(plaintext string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(v.key)
	if err != nil {
		return nil, fmt.Errorf("vault: creating recipient: %w", err)
	}
	recipient.SetWorkFactor(scryptWorkFactor)

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("vault: creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return nil, fmt.Errorf("vault: writing ciphertext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("vault: finalizing ciphertext: %w", err)
	}

	return buf.Bytes(), nil
}

// Decrypt opens a blob produced by Encrypt. Fails with ErrDecryption when
// the blob is malformed or was sealed under a different key.
func (v *Vault) Decrypt(blob []byte) (string, error) {
	identity, err := age.NewScryptIdentity(v.key)
	if err != nil {
		return "", fmt.Errorf("vault: creating identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(blob), identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	return string(plaintext), nil
}
