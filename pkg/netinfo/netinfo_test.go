package netinfo

import (
	"errors"
	"testing"
)

func TestLocalIPv4_ReturnsAddressOrNoLANError(t *testing.T) {
	ip, err := LocalIPv4()
	if err != nil {
		if !errors.Is(err, ErrNoLANAddress) {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	if ip.To4() == nil {
		t.Errorf("expected an IPv4 address, got %v", ip)
	}
	if ip.IsLoopback() {
		t.Errorf("expected a non-loopback address, got %v", ip)
	}
}

func TestLocalIPv4String_NeverPanics(t *testing.T) {
	_ = LocalIPv4String()
}
