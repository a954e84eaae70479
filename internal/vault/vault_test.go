package vault

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	v := New("correct horse battery staple")

	sealed, err := v.Seal([]byte("sk-test-key"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("sk-test-key")) {
		t.Error("sealed blob leaks plaintext")
	}

	opened, err := v.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(opened) != "sk-test-key" {
		t.Errorf("expected round trip, got %q", opened)
	}
}

func TestSameKeyAcrossInstances(t *testing.T) {
	sealed, err := New("passphrase").Seal([]byte("value"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	opened, err := New("passphrase").Open(sealed)
	if err != nil {
		t.Fatalf("open with fresh vault: %v", err)
	}
	if string(opened) != "value" {
		t.Errorf("expected value, got %q", opened)
	}
}

func TestWrongPassphrase(t *testing.T) {
	sealed, _ := New("right").Seal([]byte("value"))

	if _, err := New("wrong").Open(sealed); err == nil {
		t.Error("expected decrypt failure with wrong passphrase")
	}
}

func TestOpenTruncatedBlob(t *testing.T) {
	if _, err := New("p").Open([]byte("short")); err == nil {
		t.Error("expected error for truncated blob")
	}
}
