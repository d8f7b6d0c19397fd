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

// Package framing implements the wire-level record codec: a 4-byte
// little-endian length prefix followed by exactly that many bytes of
// ciphertext.
package framing

import "encoding/binary"

// headerSize is the length of the little-endian length prefix.
const headerSize = 4

// ReadFrame inspects buf for one complete length-prefixed frame.
//
// It returns consumed == 0 if buf does not yet contain a full frame
// (either the 4-byte header itself, or the ciphertext body the header
// promises); the caller should wait for more bytes and not advance its
// read cursor. Otherwise it returns consumed == headerSize+len(ciphertext)
// and the ciphertext slice (aliasing buf); the caller advances its read
// cursor by consumed.
//
// ReadFrame never fails on its own: the only failure mode at this layer
// is decryption failure, which is the decoder's concern, not the
// framer's. The on-wire length is not bounds-checked against a maximum
// here; the read loop in cmd/rsockd closes a connection whose buffered,
// still-incomplete frame grows past 64 KiB of ciphertext.
func ReadFrame(buf []byte) (consumed int, ciphertext []byte) {
	if len(buf) < headerSize {
		return 0, nil
	}
	n := int(binary.LittleEndian.Uint32(buf))
	if len(buf) < headerSize+n {
		return 0, nil
	}
	return headerSize + n, buf[headerSize : headerSize+n]
}

// WriteFrame appends a length-prefixed frame containing ciphertext to
// dst and returns the extended slice.
func WriteFrame(dst []byte, ciphertext []byte) []byte {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(ciphertext)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, ciphertext...)
	return dst
}
