package proxy

import (
	"testing"
	"time"
)

func TestNewDirect(t *testing.T) {
	d, err := New("", 3*time.Second)
	if err != nil {
		t.Fatalf("New failed for direct mode: %v", err)
	}
	if d == nil || d.forward == nil {
		t.Fatal("expected a usable direct dialer")
	}
}

func TestNewSocks5(t *testing.T) {
	d, err := New("socks5://127.0.0.1:1080", 3*time.Second)
	if err != nil {
		t.Fatalf("New failed for socks5: %v", err)
	}
	if d.forward == nil {
		t.Fatal("expected a forward dialer")
	}
}

func TestNewRejectsUnsupportedScheme(t *testing.T) {
	if _, err := New("ftp://127.0.0.1:21", 3*time.Second); err == nil {
		t.Fatal("expected error for unsupported proxy scheme")
	}
}
