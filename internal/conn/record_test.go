package conn

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func TestPairIsSymmetric(t *testing.T) {
	a := NewRecord(1, RoleInboundClient, nil, StageExpectMethod)
	b := NewRecord(2, RoleOutboundTarget, nil, StageStream)

	Pair(a, b)

	if a.Peer() != b || b.Peer() != a {
		t.Fatalf("peer links are not mutual")
	}
	if a.Role == b.Role {
		t.Fatalf("paired records share role %v", a.Role)
	}
	if a.Stage() != StageStream || b.Stage() != StageStream {
		t.Fatalf("paired records not both in stream: %v, %v", a.Stage(), b.Stage())
	}
}

func TestUnpairClearsPeerAndClosesStage(t *testing.T) {
	a := NewRecord(1, RoleInboundClient, nil, StageExpectMethod)
	b := NewRecord(2, RoleOutboundTarget, nil, StageStream)
	Pair(a, b)

	a.Unpair()

	if a.Peer() != nil {
		t.Fatalf("peer link survived Unpair")
	}
	if a.Stage() != StageClosed {
		t.Fatalf("stage = %v after Unpair, want StageClosed", a.Stage())
	}
	// Unpair is one-sided; the other half is torn down by its own call.
	if b.Peer() != a {
		t.Fatalf("Unpair touched the peer's own link")
	}
}

func TestNewInboundRecordStartsUnpaired(t *testing.T) {
	a := NewRecord(1, RoleInboundClient, nil, StageExpectMethod)
	if a.Peer() != nil {
		t.Fatalf("fresh inbound record has a peer")
	}
	if a.Stage() != StageExpectMethod {
		t.Fatalf("fresh inbound record stage = %v", a.Stage())
	}
}

func TestAppendFlushPreservesOrder(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	r := NewRecord(1, RoleOutboundTarget, local, StageStream)
	r.Append([]byte{0xDE, 0xAD})
	r.Append([]byte{0xBE, 0xEF})

	want := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, len(want))
		total := 0
		for total < len(buf) {
			remote.SetReadDeadline(time.Now().Add(2 * time.Second))
			n, err := remote.Read(buf[total:])
			total += n
			if err != nil {
				break
			}
		}
		got <- buf[:total]
	}()

	if err := r.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if drained := <-got; !bytes.Equal(drained, want) {
		t.Fatalf("flushed %v, want %v", drained, want)
	}
}

func TestFlushEmptyBufferDoesNotWrite(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	defer local.Close()

	r := NewRecord(1, RoleInboundClient, local, StageStream)
	// net.Pipe writes block until read; an empty flush must return
	// immediately without touching the conn.
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush on empty buffer: %v", err)
	}
}

func TestRoleString(t *testing.T) {
	if RoleInboundClient.String() != "inbound-client" {
		t.Fatalf("RoleInboundClient.String() = %q", RoleInboundClient.String())
	}
	if RoleOutboundTarget.String() != "outbound-target" {
		t.Fatalf("RoleOutboundTarget.String() = %q", RoleOutboundTarget.String())
	}
}
