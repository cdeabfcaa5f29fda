// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package seal derives room keys from a shared passphrase and seals
// individual messages with AES-256-GCM.
//
// Every room has its own key: the passphrase is stretched with PBKDF2 using
// the public room id as salt, so reusing a passphrase across rooms still
// yields independent keys. Sealed payloads carry their nonce in the clear.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of a derived room key (AES-256).
	KeySize = 32

	// NonceSize is the size of the GCM nonce drawn for every seal.
	NonceSize = 12

	// Iterations is the PBKDF2 work factor.
	Iterations = 100_000
)

// ErrAuthenticationFailure is returned when a payload does not open under
// the given key. A wrong passphrase and tampered data look the same.
var ErrAuthenticationFailure = errors.New("message authentication failed")

// Key is a derived room key.
type Key [KeySize]byte

// Payload is a sealed message as it is stored: nonce plus ciphertext with
// the GCM tag appended.
type Payload struct {
	Nonce      []byte
	Ciphertext []byte
}

type wirePayload struct {
	IV string `json:"iv"`
	CT string `json:"ct"`
}

// MarshalJSON encodes the payload as {"iv": ..., "ct": ...} with standard
// base64 fields.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePayload{
		IV: base64.StdEncoding.EncodeToString(p.Nonce),
		CT: base64.StdEncoding.EncodeToString(p.Ciphertext),
	})
}

// UnmarshalJSON decodes the {"iv", "ct"} form. Both fields are required.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.IV == "" || w.CT == "" {
		return errors.New("sealed payload missing iv or ct")
	}
	nonce, err := base64.StdEncoding.DecodeString(w.IV)
	if err != nil {
		return fmt.Errorf("failed to decode iv: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(w.CT)
	if err != nil {
		return fmt.Errorf("failed to decode ct: %w", err)
	}
	p.Nonce = nonce
	p.Ciphertext = ct
	return nil
}

// DeriveKey stretches passphrase into a room key, salted with roomID.
// The same pair always yields the same key.
func DeriveKey(passphrase, roomID string) Key {
	out := pbkdf2.Key([]byte(passphrase), []byte(roomID), Iterations, KeySize, sha256.New)
	var key Key
	copy(key[:], out)
	return key
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key with a fresh random nonce.
func Encrypt(plaintext []byte, key Key) (*Payload, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to draw nonce: %w", err)
	}

	return &Payload{
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// Decrypt opens p under key. Any failure, including a malformed nonce,
// is reported as ErrAuthenticationFailure.
func Decrypt(p *Payload, key Key) ([]byte, error) {
	if p == nil || len(p.Nonce) != NonceSize {
		return nil, ErrAuthenticationFailure
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, ErrAuthenticationFailure
	}
	plaintext, err := gcm.Open(nil, p.Nonce, p.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailure
	}
	return plaintext, nil
}

// Result is the outcome of opening one payload.
type Result struct {
	Plaintext []byte
	Err       error
}

// OK reports whether the payload authenticated.
func (r Result) OK() bool {
	return r.Err == nil
}

// Open is Decrypt in result form, for callers that filter a batch of
// payloads in one pass.
func Open(p *Payload, key Key) Result {
	plaintext, err := Decrypt(p, key)
	return Result{Plaintext: plaintext, Err: err}
}
