package connector

import (
	"net"
	"testing"
	"time"
)

func TestDialSucceeds(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer lis.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := lis.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	addr := lis.Addr().(*net.TCPAddr)
	c := New(2 * time.Second)
	conn, err := c.Dial("127.0.0.1", uint16(addr.Port))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	select {
	case server := <-accepted:
		server.Close()
	case <-time.After(2 * time.Second):
		t.Fatalf("listener never saw a connection")
	}
}

func TestDialRefused(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := lis.Addr().(*net.TCPAddr)
	lis.Close() // nothing listens on this port now

	c := New(2 * time.Second)
	if _, err := c.Dial("127.0.0.1", uint16(addr.Port)); err == nil {
		t.Fatalf("expected dial to a closed port to fail")
	}
}

func TestNewDefaultsNonPositiveTimeout(t *testing.T) {
	c := New(0)
	if c.Timeout != 10*time.Second {
		t.Fatalf("Timeout = %v, want 10s default", c.Timeout)
	}

	c = New(-1)
	if c.Timeout != 10*time.Second {
		t.Fatalf("Timeout = %v, want 10s default for negative input", c.Timeout)
	}
}
