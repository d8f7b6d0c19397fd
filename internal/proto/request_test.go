package proto

import (
	"encoding/binary"
	"testing"
)

func buildIPv4Request(t *testing.T, ip [4]byte, port uint16) []byte {
	t.Helper()
	buf := make([]byte, NonceSize+reqHeadSize+4+portSize)
	// nonce left zeroed; its value is ignored
	buf[NonceSize+0] = 0x05 // ver
	buf[NonceSize+1] = 0x01 // cmd CONNECT
	buf[NonceSize+2] = 0x00 // rsv
	buf[NonceSize+3] = AtypIPv4
	copy(buf[NonceSize+reqHeadSize:], ip[:])
	binary.BigEndian.PutUint16(buf[NonceSize+reqHeadSize+4:], port)
	return buf
}

func buildDomainRequest(t *testing.T, domain string, port uint16) []byte {
	t.Helper()
	buf := make([]byte, NonceSize+reqHeadSize+1+len(domain)+portSize)
	buf[NonceSize+0] = 0x05
	buf[NonceSize+1] = 0x01
	buf[NonceSize+2] = 0x00
	buf[NonceSize+3] = AtypDomain
	buf[NonceSize+reqHeadSize] = byte(len(domain))
	copy(buf[NonceSize+reqHeadSize+1:], domain)
	binary.BigEndian.PutUint16(buf[NonceSize+reqHeadSize+1+len(domain):], port)
	return buf
}

func TestDecodeRequestIPv4(t *testing.T) {
	plaintext := buildIPv4Request(t, [4]byte{93, 184, 216, 34}, 80)
	req, err := DecodeRequest(plaintext)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if req.Atyp != AtypIPv4 || req.Host != "93.184.216.34" || req.Port != 80 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeRequestDomain(t *testing.T) {
	plaintext := buildDomainRequest(t, "example.com", 443)
	req, err := DecodeRequest(plaintext)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if req.Atyp != AtypDomain || req.Host != "example.com" || req.Port != 443 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeRequestIPv6Rejected(t *testing.T) {
	buf := make([]byte, NonceSize+reqHeadSize+16+portSize)
	buf[NonceSize+3] = AtypIPv6
	if _, err := DecodeRequest(buf); err != ErrUnsupportedAddress {
		t.Fatalf("DecodeRequest IPv6 = %v, want ErrUnsupportedAddress", err)
	}
}

func TestDecodeRequestUnknownAtyp(t *testing.T) {
	buf := make([]byte, NonceSize+reqHeadSize+portSize)
	buf[NonceSize+3] = 0x7f
	if _, err := DecodeRequest(buf); err != ErrUnsupportedAddress {
		t.Fatalf("DecodeRequest unknown atyp = %v, want ErrUnsupportedAddress", err)
	}
}

func TestDecodeRequestNeedMore(t *testing.T) {
	cases := [][]byte{
		nil,
		make([]byte, NonceSize+1),
		buildIPv4Request(t, [4]byte{1, 2, 3, 4}, 80)[:NonceSize+reqHeadSize+2],
		buildDomainRequest(t, "example.com", 443)[:NonceSize+reqHeadSize+1], // length byte present, domain truncated
	}
	for i, buf := range cases {
		if _, err := DecodeRequest(buf); err != ErrNeedMore {
			t.Fatalf("case %d: DecodeRequest = %v, want ErrNeedMore", i, err)
		}
	}
}
