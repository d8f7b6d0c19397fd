// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package cipher wraps AES-128-CFB over a password-derived key and a
// fixed, process-global IV set at startup. Reusing one IV across every
// tunnel is a known weakness of the wire protocol, kept for
// compatibility with existing clients; it is also not something a safe
// AEAD wrapper would expose, so this package talks to crypto/aes and
// crypto/cipher directly rather than routing through one.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// keySize is AES-128's key length in bytes.
const keySize = 16

// salt is the fixed KDF salt; both ends must derive with the same one.
const salt = "rsockd"

// Box is a ready-to-use AES-128-CFB encrypt/decrypt pair sharing one
// key and one IV for its entire lifetime. Construct with NewBox.
type Box struct {
	block cipher.Block
	iv    []byte
}

// NewBox derives a 128-bit key from password via PBKDF2-SHA1 (4096
// iterations) and fixes the IV to the first aes.BlockSize bytes of a
// second, independent derivation so the IV does not simply repeat the
// key.
func NewBox(password string) (*Box, error) {
	if password == "" {
		return nil, errors.New("cipher: empty password")
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), 4096, keySize, sha1.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "cipher: new AES block")
	}
	iv := pbkdf2.Key([]byte(password), []byte(salt+"-iv"), 4096, aes.BlockSize, sha1.New)
	return &Box{block: block, iv: iv}, nil
}

// Encrypt returns the CFB ciphertext for plaintext. The result is the
// same length as plaintext (CFB is a stream mode; there is no padding).
func (b *Box) Encrypt(plaintext []byte) ([]byte, error) {
	ciphertext := make([]byte, len(plaintext))
	stream := cipher.NewCFBEncrypter(b.block, b.iv)
	stream.XORKeyStream(ciphertext, plaintext)
	return ciphertext, nil
}

// Decrypt returns the plaintext for ciphertext. The error return mirrors
// Encrypt's; CFB itself has no structural failure mode (it's a stream
// cipher, any length is valid input), so decrypt failures surface one
// layer up, as malformed-plaintext errors once the caller tries to parse
// a request out of the recovered bytes.
func (b *Box) Decrypt(ciphertext []byte) ([]byte, error) {
	plaintext := make([]byte, len(ciphertext))
	stream := cipher.NewCFBDecrypter(b.block, b.iv)
	stream.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}
