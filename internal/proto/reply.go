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

package proto

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// EncodeReply builds the plaintext success reply: a fresh nonce, the
// echoed ver/atyp/address/port, and RspSucceeded in the cmd position.
// No failure reply is ever constructed; failures are signaled by
// silently closing the connection.
func EncodeReply(req *Request) ([]byte, error) {
	nonce, err := NewNonce()
	if err != nil {
		return nil, err
	}

	reply := make([]byte, 0, NonceSize+reqHeadSize+len(req.AddrBytes)+portSize)
	reply = append(reply, nonce...)
	reply = append(reply, req.Ver, RspSucceeded, req.Rsv, req.Atyp)
	reply = append(reply, req.AddrBytes...)

	var portBuf [portSize]byte
	binary.BigEndian.PutUint16(portBuf[:], req.Port)
	reply = append(reply, portBuf[:]...)

	return reply, nil
}

// DecodeReply is the client-side counterpart used by the round-trip
// tests: it parses a reply the same way a companion client would, to
// confirm atyp/address/port survive the request-to-reply trip unchanged.
func DecodeReply(plaintext []byte) (*Request, error) {
	req, err := DecodeRequest(plaintext)
	if err != nil {
		return nil, errors.Wrap(err, "proto: decoding reply")
	}
	if req.Cmd != RspSucceeded {
		return nil, errors.Errorf("proto: reply cmd = %#x, want SUCCEEDED", req.Cmd)
	}
	return req, nil
}
