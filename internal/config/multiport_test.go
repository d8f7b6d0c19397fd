package config

import "testing"

func TestParseListenRangeSinglePort(t *testing.T) {
	lr, err := ParseListenRange("0.0.0.0:7777")
	if err != nil {
		t.Fatalf("ParseListenRange: %v", err)
	}
	if lr.Host != "0.0.0.0" || lr.MinPort != 7777 || lr.MaxPort != 7777 {
		t.Fatalf("unexpected range: %+v", lr)
	}
}

func TestParseListenRangeMultiPort(t *testing.T) {
	lr, err := ParseListenRange("127.0.0.1:8000-8010")
	if err != nil {
		t.Fatalf("ParseListenRange: %v", err)
	}
	if lr.MinPort != 8000 || lr.MaxPort != 8010 {
		t.Fatalf("unexpected range: %+v", lr)
	}
}

func TestParseListenRangeRejectsInverted(t *testing.T) {
	if _, err := ParseListenRange("127.0.0.1:9000-8000"); err == nil {
		t.Fatalf("expected error for inverted port range")
	}
}

func TestParseListenRangeRejectsMalformed(t *testing.T) {
	cases := []string{"", "no-port-here", "127.0.0.1:"}
	for _, addr := range cases {
		if _, err := ParseListenRange(addr); err == nil {
			t.Fatalf("expected error for malformed address %q", addr)
		}
	}
}

func TestParseListenRangeRejectsZeroPort(t *testing.T) {
	if _, err := ParseListenRange("127.0.0.1:0"); err == nil {
		t.Fatalf("expected error for port 0")
	}
}
