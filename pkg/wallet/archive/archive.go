/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package archive seals exported wallet records into a passphrase protected file.
//
// Layout: the magic "VCXB", one compression byte (0 none, 1 zstd) and an age scrypt ciphertext of the JSON
// record list, compressed when the byte says so.
package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"

	"github.com/topcoder-platform/mobilewallet/pkg/wallet"
)

const (
	magic = "VCXB"

	compressionNone byte = 0
	compressionZstd byte = 1

	fileMode = 0o600
)

// ErrMalformed is returned for data that is not an archive.
var ErrMalformed = errors.New("malformed wallet archive")

// nolint:gochecknoglobals
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

type options struct {
	workFactor int
}

// Option configures sealing.
type Option func(o *options)

// WithWorkFactor sets the scrypt work factor (log2 of N) of the passphrase recipient.
func WithWorkFactor(logN int) Option {
	return func(o *options) {
		o.workFactor = logN
	}
}

// Seal encodes and encrypts records under passphrase.
func Seal(records []*wallet.Record, passphrase string, opts ...Option) ([]byte, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}

	if o.workFactor > 0 {
		recipient.SetWorkFactor(o.workFactor)
	}

	plaintext, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}

	compression := compressionNone

	if compressed := encoder.EncodeAll(plaintext, nil); len(compressed) < len(plaintext) {
		plaintext, compression = compressed, compressionZstd
	}

	var buf bytes.Buffer

	buf.WriteString(magic)
	buf.WriteByte(compression)

	writer, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}

	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}

	return buf.Bytes(), nil
}

// Open decrypts and decodes an archive produced by Seal.
func Open(data []byte, passphrase string) ([]*wallet.Record, error) {
	if len(data) <= len(magic) || string(data[:len(magic)]) != magic {
		return nil, ErrMalformed
	}

	compression := data[len(magic)]
	if compression != compressionNone && compression != compressionZstd {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrMalformed, compression)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(data[len(magic)+1:]), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}

	if compression == compressionZstd {
		plaintext, err = decoder.DecodeAll(plaintext, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
	}

	var records []*wallet.Record
	if err := json.Unmarshal(plaintext, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return records, nil
}

// WriteFile seals records into the file at path.
func WriteFile(path string, records []*wallet.Record, passphrase string, opts ...Option) ([]byte, error) {
	data, err := Seal(records, passphrase, opts...)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, data, fileMode); err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}

	return data, nil
}

// ReadFile opens the archive stored at path.
func ReadFile(path, passphrase string) ([]*wallet.Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	return Open(data, passphrase)
}
