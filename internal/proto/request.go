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

// Package proto implements the plaintext layout of the encrypted
// handshake: the nonce-prefixed, SOCKS5-shaped request a client sends
// and the success reply the server echoes back.
package proto

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Protocol constants. This is not RFC 1928 SOCKS5 (there is no method
// negotiation), just a request layout that borrows its field shapes.
const (
	NonceSize = 8

	AtypIPv4   = 0x01
	AtypDomain = 0x03
	AtypIPv6   = 0x04

	RspSucceeded = 0x00

	reqHeadSize = 4 // ver, cmd, rsv, atyp
	portSize    = 2
)

// ErrNeedMore signals that data does not contain a complete plaintext
// request. The dispatcher only decodes a request out of a complete
// frame, which no later bytes can extend, so it treats this as fatal
// (a "frame" handshake failure) rather than waiting for more input.
var ErrNeedMore = errors.New("proto: incomplete request")

// ErrUnsupportedAddress signals atyp is IPv6 or unrecognized; both are
// fatal for the requesting connection.
var ErrUnsupportedAddress = errors.New("proto: unsupported address type")

// Request is a decoded client request: the SOCKS5-like header plus the
// resolved address in both binary and dotted/string form.
type Request struct {
	Ver  byte
	Cmd  byte
	Rsv  byte
	Atyp byte

	// AddrBytes is the raw on-wire address encoding: 4 bytes for IPv4,
	// or the length-prefixed domain name for AtypDomain. It is echoed
	// back verbatim in the reply.
	AddrBytes []byte
	// Host is the human-readable form used to dial the target and to
	// populate Record.host: dotted-quad for IPv4, the raw domain string
	// for AtypDomain.
	Host string
	Port uint16
}

// DecodeRequest parses the nonce-prefixed plaintext request. The nonce
// is validated only for presence; its bytes are otherwise ignored.
func DecodeRequest(plaintext []byte) (*Request, error) {
	if len(plaintext) < NonceSize+reqHeadSize {
		return nil, ErrNeedMore
	}
	body := plaintext[NonceSize:]

	req := &Request{
		Ver:  body[0],
		Cmd:  body[1],
		Rsv:  body[2],
		Atyp: body[3],
	}

	switch req.Atyp {
	case AtypIPv4:
		const addrLen = 4
		if len(body) < reqHeadSize+addrLen+portSize {
			return nil, ErrNeedMore
		}
		addr := body[reqHeadSize : reqHeadSize+addrLen]
		req.AddrBytes = append([]byte(nil), addr...)
		req.Host = ipv4String(addr)
		req.Port = binary.BigEndian.Uint16(body[reqHeadSize+addrLen : reqHeadSize+addrLen+portSize])
		return req, nil

	case AtypDomain:
		if len(body) < reqHeadSize+1 {
			return nil, ErrNeedMore
		}
		domainLen := int(body[reqHeadSize])
		domainEnd := reqHeadSize + 1 + domainLen
		if len(body) < domainEnd+portSize {
			return nil, ErrNeedMore
		}
		domain := body[reqHeadSize+1 : domainEnd]
		req.AddrBytes = append([]byte(nil), body[reqHeadSize:domainEnd]...) // length byte + domain, echoed verbatim
		req.Host = string(domain)
		req.Port = binary.BigEndian.Uint16(body[domainEnd : domainEnd+portSize])
		return req, nil

	case AtypIPv6:
		return nil, ErrUnsupportedAddress

	default:
		return nil, ErrUnsupportedAddress
	}
}

func ipv4String(b []byte) string {
	buf := make([]byte, 0, 15)
	for i, octet := range b {
		if i > 0 {
			buf = append(buf, '.')
		}
		buf = appendUint8(buf, octet)
	}
	return string(buf)
}

func appendUint8(buf []byte, v byte) []byte {
	if v >= 100 {
		buf = append(buf, '0'+v/100)
		v %= 100
		buf = append(buf, '0'+v/10, '0'+v%10)
	} else if v >= 10 {
		buf = append(buf, '0'+v/10, '0'+v%10)
	} else {
		buf = append(buf, '0'+v)
	}
	return buf
}

// NewNonce returns NonceSize fresh random bytes.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "proto: generating nonce")
	}
	return nonce, nil
}
