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

// Package conn implements the connection record and pairing model: each
// live TCP endpoint is tracked by a Record carrying its role, protocol
// stage, a send staging buffer, a peer back-reference, and a diagnostic
// host string.
//
// The staging buffer is append-then-flush rather than a direct pipe:
// Flush is a blocking net.Conn.Write, callable from whichever goroutine
// last appended, so either half of a pair can push bytes to the other.
package conn

import (
	"net"
	"sync"
)

// Role identifies which half of a tunnel a Record represents.
type Role int

const (
	RoleInboundClient Role = iota
	RoleOutboundTarget
)

func (r Role) String() string {
	if r == RoleInboundClient {
		return "inbound-client"
	}
	return "outbound-target"
}

// Stage is a Record's position in the protocol state machine.
type Stage int

const (
	// StageExpectMethod is the initial stage for an inbound-client
	// record: it has sent nothing yet but the encrypted handshake
	// request.
	StageExpectMethod Stage = iota
	// StageStream is the steady-state full-duplex relay stage. Both
	// halves of a pair are in this stage once pairing completes.
	StageStream
	// StageClosed marks a record that has been torn down; records in
	// this stage are removed from the connection table and are not
	// expected to be dispatched again.
	StageClosed
)

// Record is the in-memory state for one TCP endpoint of a tunnel.
//
// Record is not safe for concurrent field access except through its
// methods; Append/Flush/Peer/Unpair are all mutex-guarded because a
// paired record's peer may act on it from a different goroutine (the
// peer's own read loop).
type Record struct {
	Handle int64
	Role   Role
	Conn   net.Conn

	mu    sync.Mutex
	stage Stage
	peer  *Record
	host  string
	send  []byte
}

// NewRecord creates a record for c in the given initial stage. Inbound-
// client records start in StageExpectMethod; outbound-target records are
// created directly in StageStream.
func NewRecord(handle int64, role Role, c net.Conn, stage Stage) *Record {
	return &Record{Handle: handle, Role: role, Conn: c, stage: stage}
}

// Stage returns the record's current protocol stage.
func (r *Record) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// SetStage transitions the record to stage. Callers are responsible for
// only making legal transitions.
func (r *Record) SetStage(stage Stage) {
	r.mu.Lock()
	r.stage = stage
	r.mu.Unlock()
}

// Host returns the diagnostic host string set at pairing time.
func (r *Record) Host() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host
}

// SetHost sets the diagnostic host string.
func (r *Record) SetHost(host string) {
	r.mu.Lock()
	r.host = host
	r.mu.Unlock()
}

// Peer returns the paired record, or nil if unpaired.
func (r *Record) Peer() *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peer
}

// Pair links a and b symmetrically (a.peer = b, b.peer = a) and
// transitions both into StageStream. Pairing keeps the invariant of
// mutual peer references with differing roles, both in stream.
func Pair(a, b *Record) {
	a.mu.Lock()
	a.peer = b
	a.stage = StageStream
	a.mu.Unlock()

	b.mu.Lock()
	b.peer = a
	b.stage = StageStream
	b.mu.Unlock()
}

// Unpair clears r's peer link without touching the peer's own link
// (callers tearing down a pair call Unpair on both sides).
func (r *Record) Unpair() {
	r.mu.Lock()
	r.peer = nil
	r.stage = StageClosed
	r.mu.Unlock()
}

// Append stages bytes for later Flush. It never blocks on the network.
func (r *Record) Append(b []byte) {
	r.mu.Lock()
	r.send = append(r.send, b...)
	r.mu.Unlock()
}

// Flush writes as much of the staged bytes as the transport accepts.
// On a short write or error, the unsent remainder stays buffered for the
// next Flush call; on error, the caller is expected to treat the record
// as fatally broken rather than retry indefinitely.
func (r *Record) Flush() error {
	r.mu.Lock()
	pending := r.send
	r.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	n, err := r.Conn.Write(pending)

	r.mu.Lock()
	// Only trim the prefix we just attempted to send; more may have been
	// appended concurrently while Write was in flight.
	if n > 0 {
		if n >= len(r.send) {
			r.send = r.send[:0]
		} else {
			r.send = append(r.send[:0], r.send[n:]...)
		}
	}
	r.mu.Unlock()

	return err
}

// Close shuts down the underlying connection. It does not touch the
// peer; callers tear down both halves of a pair explicitly.
func (r *Record) Close() error {
	return r.Conn.Close()
}
