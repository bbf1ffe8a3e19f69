/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package local

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/tink/go/signature/subtle"
	"github.com/google/tink/go/subtle/random"
	"golang.org/x/crypto/pbkdf2"

	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

const (
	seedSize   = ed25519.SeedSize
	didKeySize = 16
	saltSize   = 16
	checkValue = "vcx-wallet-check"
)

// masterLock seals key seeds with a master key expanded from the wallet key using PBKDF2.
type masterLock struct {
	aead cipher.AEAD
}

func newMasterLock(passphrase string, salt []byte, iterations int) (*masterLock, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("wallet key is empty")
	}

	masterKey := pbkdf2.Key([]byte(passphrase), salt, iterations, sha256.Size, sha256.New)

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AES-GCM: %w", err)
	}

	return &masterLock{aead: aead}, nil
}

func (m *masterLock) seal(plaintext []byte, aad string) string {
	nonce := random.GetRandomBytes(uint32(m.aead.NonceSize()))
	ct := m.aead.Seal(nil, nonce, plaintext, []byte(aad))

	return base64.URLEncoding.EncodeToString(append(nonce, ct...))
}

func (m *masterLock) open(sealed, aad string) ([]byte, error) {
	ct, err := base64.URLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, err
	}

	nonceSize := m.aead.NonceSize()

	// ensure ciphertext contains more than nonce+ciphertext (result from seal())
	if len(ct) <= nonceSize {
		return nil, fmt.Errorf("invalid sealed value")
	}

	return m.aead.Open(nil, ct[:nonceSize], ct[nonceSize:], []byte(aad))
}

func keyFromSeed(seed []byte) *wallet.Key {
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey) //nolint:forcetypeassert

	return &wallet.Key{
		DID:    base58.Encode(pub[:didKeySize]),
		Verkey: base58.Encode(pub),
	}
}

func sign(seed, data []byte) ([]byte, error) {
	signer, err := subtle.NewED25519Signer(seed)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	return signer.Sign(data)
}

func verify(verkey string, data, signature []byte) (bool, error) {
	pub := base58.Decode(verkey)
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("invalid verkey %q", verkey)
	}

	verifier, err := subtle.NewED25519Verifier(pub)
	if err != nil {
		return false, fmt.Errorf("create verifier: %w", err)
	}

	return verifier.Verify(signature, data) == nil, nil
}
