package auth

import "testing"

func TestDeviceRegistryStableToken(t *testing.T) {
	reg := NewDeviceRegistry()

	first := reg.GetOrCreate("u1")
	if first == "" {
		t.Fatal("expected a token")
	}
	for i := 0; i < 3; i++ {
		if got := reg.GetOrCreate("u1"); got != first {
			t.Fatalf("token changed between calls: got %q, want %q", got, first)
		}
	}
}

func TestDeviceRegistryPerUser(t *testing.T) {
	reg := NewDeviceRegistry()

	a := reg.GetOrCreate("u1")
	b := reg.GetOrCreate("u2")
	if a == b {
		t.Fatal("users share a device token")
	}
}

func TestDeviceRegistryClearMintsNew(t *testing.T) {
	reg := NewDeviceRegistry()

	first := reg.GetOrCreate("u1")
	reg.Clear("u1")
	if got := reg.GetOrCreate("u1"); got == first {
		t.Fatal("token survived Clear")
	}

	second := reg.GetOrCreate("u1")
	reg.Reset("u1")
	if got := reg.GetOrCreate("u1"); got == second {
		t.Fatal("token survived Reset")
	}
}
