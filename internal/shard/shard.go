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

// Package shard implements the per-listener ownership unit: one
// connection table plus the business entry dispatcher the accept loop
// calls into for every readable socket. All table access goes through a
// single mutex, so the red-black tree itself needs no internal locking.
package shard

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/xtaci/rsockd/internal/cipher"
	"github.com/xtaci/rsockd/internal/conn"
	"github.com/xtaci/rsockd/internal/framing"
	"github.com/xtaci/rsockd/internal/proto"
	"github.com/xtaci/rsockd/internal/rbtree"
)

// Connector dials a requested destination and returns a usable net.Conn
// or a definite failure before the dispatcher continues; the dispatcher
// never waits on a half-finished connect.
type Connector interface {
	Dial(host string, port uint16) (net.Conn, error)
}

// Recorder is the metrics-facing hook the dispatcher calls into. A nil
// Recorder is valid and every call is a no-op.
type Recorder interface {
	TunnelOpened(atyp byte)
	HandshakeFailure(reason string)
	BytesRelayed(direction string, n int)
	TableSize(n int)
}

// ErrPeerMissing is returned when a stream-stage record's peer link is
// nil. A missing peer means the other half was already torn down, so
// this is fatal and never retried.
var ErrPeerMissing = errors.New("shard: stream-stage record has no peer")

// Shard owns one connection table and dispatches business_entry calls
// for every record registered in it.
type Shard struct {
	box       *cipher.Box
	connector Connector
	rec       Recorder

	mu         sync.Mutex
	table      *rbtree.Tree[*conn.Record]
	nextHandle atomic.Int64

	// onOutbound, if set, is called once a handshake has dialed and
	// paired a target connection and flushed the success reply. The
	// accept loop in cmd/rsockd uses this to start reading from the
	// target socket; the shard itself never reads from a net.Conn
	// directly, so Dispatch stays a pure function of bytes already
	// read.
	onOutbound func(rec *conn.Record)

	// closeWait bounds the final best-effort flush a torn-down record's
	// peer gets before its socket is closed. Zero means no deadline.
	closeWait time.Duration
}

// New constructs an empty shard. rec may be nil.
func New(box *cipher.Box, connector Connector, rec Recorder) *Shard {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Shard{
		box:       box,
		connector: connector,
		rec:       rec,
		table:     rbtree.New[*conn.Record](),
	}
}

// OnOutbound registers a callback invoked whenever handshake dials and
// pairs a new outbound target connection.
func (s *Shard) OnOutbound(f func(rec *conn.Record)) {
	s.onOutbound = f
}

// SetCloseWait bounds the peer's final flush during Teardown. A
// non-positive d removes the bound.
func (s *Shard) SetCloseWait(d time.Duration) {
	s.closeWait = d
}

// nextHandleValue hands out a fresh, unique int64 handle for a new
// record. Handles are never reused within a shard's lifetime.
func (s *Shard) nextHandleValue() int64 {
	return s.nextHandle.Add(1)
}

// RegisterInbound creates an inbound-client record in StageExpectMethod
// for c and inserts it into the table.
func (s *Shard) RegisterInbound(c net.Conn) *conn.Record {
	handle := s.nextHandleValue()
	rec := conn.NewRecord(handle, conn.RoleInboundClient, c, conn.StageExpectMethod)
	s.insert(handle, rec)
	return rec
}

func (s *Shard) insert(handle int64, rec *conn.Record) {
	s.mu.Lock()
	s.table.Insert(handle, rec)
	n := s.table.Len()
	s.mu.Unlock()
	s.rec.TableSize(n)
}

func (s *Shard) delete(handle int64) {
	s.mu.Lock()
	s.table.Delete(handle)
	n := s.table.Len()
	s.mu.Unlock()
	s.rec.TableSize(n)
}

// Lookup returns the record registered under handle, if any.
func (s *Shard) Lookup(handle int64) (*conn.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Lookup(handle)
}

// Len reports the number of live records in this shard's table.
func (s *Shard) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Len()
}

// Teardown closes rec and, if paired, its peer, removing both from the
// table and clearing their peer links. The closing side's own staged
// bytes are discarded; the peer gets one best-effort flush, bounded by
// closeWait, before its socket is closed. Safe to call with a nil peer
// (the expect-method-stage failure case) or after the peer has already
// been torn down by a concurrent call from the other goroutine, since
// Unpair and table deletion are idempotent.
func (s *Shard) Teardown(rec *conn.Record) {
	peer := rec.Peer()
	rec.Unpair()
	rec.Close()
	s.delete(rec.Handle)

	if peer != nil {
		if s.closeWait > 0 {
			peer.Conn.SetWriteDeadline(time.Now().Add(s.closeWait))
		}
		peer.Flush()
		peer.Unpair()
		peer.Close()
		s.delete(peer.Handle)
	}
}

// CloseAll tears down every record in the table, visiting in handle
// order. The walk only collects; unpairing, closing, and deletion
// happen after the lock is released, since the in-order walk does not
// support structural mutation mid-visit.
func (s *Shard) CloseAll() {
	s.mu.Lock()
	recs := make([]*conn.Record, 0, s.table.Len())
	s.table.InOrder(func(_ int64, r *conn.Record) {
		recs = append(recs, r)
	})
	s.mu.Unlock()

	for _, r := range recs {
		r.Unpair()
		r.Close()
		s.delete(r.Handle)
	}
}

// Dispatch is the business entry point: called with the record bytes
// arrived on and the bytes themselves, it returns the number of bytes
// consumed (positive), 0 for "need more", or -1 on a fatal error (in
// which case the caller must stop reading from rec; the teardown itself
// has already happened).
func (s *Shard) Dispatch(rec *conn.Record, data []byte) (int, error) {
	switch rec.Role {
	case conn.RoleInboundClient:
		return s.dispatchClient(rec, data)
	case conn.RoleOutboundTarget:
		return s.relay(rec, data, "target_to_client")
	default:
		return -1, errors.Errorf("shard: unknown role %v", rec.Role)
	}
}

func (s *Shard) dispatchClient(rec *conn.Record, data []byte) (int, error) {
	switch rec.Stage() {
	case conn.StageExpectMethod:
		return s.handshake(rec, data)
	case conn.StageStream:
		return s.relay(rec, data, "client_to_target")
	default:
		s.Teardown(rec)
		return -1, errors.New("shard: dispatch on closed record")
	}
}

// handshake runs the expect-method stage: frame decode, decrypt,
// request decode, target dial, pairing, and the encrypted success
// reply.
func (s *Shard) handshake(rec *conn.Record, data []byte) (int, error) {
	consumed, ciphertext := framing.ReadFrame(data)
	if consumed == 0 {
		return 0, nil
	}

	plaintext, err := s.box.Decrypt(ciphertext)
	if err != nil {
		return s.fail(rec, "decrypt", err)
	}

	req, err := proto.DecodeRequest(plaintext)
	if err != nil {
		if errors.Is(err, proto.ErrUnsupportedAddress) {
			return s.fail(rec, "atyp", err)
		}
		return s.fail(rec, "frame", err)
	}

	targetConn, err := s.connector.Dial(req.Host, req.Port)
	if err != nil {
		return s.fail(rec, "connect", err)
	}

	targetHandle := s.nextHandleValue()
	targetRec := conn.NewRecord(targetHandle, conn.RoleOutboundTarget, targetConn, conn.StageStream)
	s.insert(targetHandle, targetRec)

	rec.SetHost(req.Host)
	targetRec.SetHost(req.Host)
	conn.Pair(rec, targetRec)

	reply, err := proto.EncodeReply(req)
	if err != nil {
		return s.fail(rec, "encrypt", err)
	}
	cipherReply, err := s.box.Encrypt(reply)
	if err != nil {
		return s.fail(rec, "encrypt", err)
	}

	rec.Append(framing.WriteFrame(nil, cipherReply))
	if err := rec.Flush(); err != nil {
		return s.fail(rec, "encrypt", err)
	}

	// Only hand the target to its read loop once the reply is on the
	// wire: targets that greet on connect (SMTP, SSH) must not get
	// their bytes relayed to the client ahead of the reply frame.
	if s.onOutbound != nil {
		s.onOutbound(targetRec)
	}

	s.rec.TunnelOpened(req.Atyp)
	return consumed, nil
}

// relay is the steady-state stage for both directions: append verbatim
// to the peer's send buffer, flush, consume everything. Relayed bytes
// are opaque; the server never re-encrypts them.
func (s *Shard) relay(rec *conn.Record, data []byte, direction string) (int, error) {
	peer := rec.Peer()
	if peer == nil {
		s.Teardown(rec)
		return -1, ErrPeerMissing
	}

	peer.Append(data)
	if err := peer.Flush(); err != nil {
		s.Teardown(rec)
		return -1, err
	}

	s.rec.BytesRelayed(direction, len(data))
	return len(data), nil
}

func (s *Shard) fail(rec *conn.Record, reason string, err error) (int, error) {
	s.rec.HandshakeFailure(reason)
	s.Teardown(rec)
	return -1, err
}

type nopRecorder struct{}

func (nopRecorder) TunnelOpened(byte)        {}
func (nopRecorder) HandshakeFailure(string)  {}
func (nopRecorder) BytesRelayed(string, int) {}
func (nopRecorder) TableSize(int)            {}
