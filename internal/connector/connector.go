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

// Package connector implements the shard.Connector collaborator: dialing
// the destination named in a decoded request and handing back a usable
// net.Conn before the handshake continues.
package connector

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// TCP dials TCP destinations with a bounded per-attempt timeout. The
// hostname may be a dotted-quad or a DNS name; resolution happens as
// part of the dial.
type TCP struct {
	Timeout time.Duration
}

// New returns a TCP connector with the given dial timeout. A non-positive
// timeout falls back to 10 seconds, the -target-timeout default.
func New(timeout time.Duration) *TCP {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TCP{Timeout: timeout}
}

// Dial connects to host:port over TCP, failing fast instead of hanging
// the handshake indefinitely; teardown on connect failure depends on
// this call returning in bounded time.
func (t *TCP) Dial(host string, port uint16) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.Timeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "connector: dial %s", addr)
	}
	return conn, nil
}
