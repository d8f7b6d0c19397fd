package framing

import (
	"bytes"
	"testing"
)

func TestReadFrameNeedMore(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x01},
		{0x01, 0x00, 0x00}, // 3 bytes of a 4-byte length prefix
		{0x05, 0x00, 0x00, 0x00, 'a', 'b'},
	}
	for _, buf := range cases {
		consumed, ct := ReadFrame(buf)
		if consumed != 0 || ct != nil {
			t.Fatalf("ReadFrame(%v) = %d, %v; want 0, nil", buf, consumed, ct)
		}
	}
}

func TestWriteReadFrameRoundTrip(t *testing.T) {
	payload := []byte("some ciphertext bytes")
	framed := WriteFrame(nil, payload)

	consumed, ct := ReadFrame(framed)
	if consumed != len(framed) {
		t.Fatalf("consumed = %d, want %d", consumed, len(framed))
	}
	if !bytes.Equal(ct, payload) {
		t.Fatalf("ciphertext = %v, want %v", ct, payload)
	}
}

func TestReadFrameConsumesExactlyOneFrameFromMultiple(t *testing.T) {
	var buf []byte
	buf = WriteFrame(buf, []byte("first"))
	buf = WriteFrame(buf, []byte("second"))

	consumed, ct := ReadFrame(buf)
	if string(ct) != "first" {
		t.Fatalf("ciphertext = %q, want %q", ct, "first")
	}
	rest := buf[consumed:]
	consumed2, ct2 := ReadFrame(rest)
	if string(ct2) != "second" {
		t.Fatalf("ciphertext = %q, want %q", ct2, "second")
	}
	if consumed2 != len(rest) {
		t.Fatalf("consumed2 = %d, want %d", consumed2, len(rest))
	}
}

func TestWriteFrameEmptyCiphertext(t *testing.T) {
	framed := WriteFrame(nil, nil)
	consumed, ct := ReadFrame(framed)
	if consumed != 4 || len(ct) != 0 {
		t.Fatalf("consumed = %d, ct = %v", consumed, ct)
	}
}
