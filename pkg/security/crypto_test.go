package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	k, err := LoadOrCreateKey(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrCreateKey: %v", err)
	}
	token := "eyJhbGciOiJIUzI1NiJ9.session-token"
	enc, err := k.EncryptToken(token)
	if err != nil {
		t.Fatalf("EncryptToken: %v", err)
	}
	if enc == token {
		t.Fatal("ciphertext equals plaintext")
	}
	dec, err := k.DecryptToken(enc)
	if err != nil {
		t.Fatalf("DecryptToken: %v", err)
	}
	if dec != token {
		t.Fatalf("round trip: got %q, want %q", dec, token)
	}
}

func TestKeyPersistsAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	k1, err := LoadOrCreateKey(dir)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	enc, err := k1.EncryptToken("persistent")
	if err != nil {
		t.Fatalf("EncryptToken: %v", err)
	}

	k2, err := LoadOrCreateKey(dir)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	dec, err := k2.DecryptToken(enc)
	if err != nil {
		t.Fatalf("DecryptToken with reloaded key: %v", err)
	}
	if dec != "persistent" {
		t.Fatalf("got %q", dec)
	}

	if fi, err := os.Stat(filepath.Join(dir, KeyFileName)); err != nil {
		t.Fatalf("key file missing: %v", err)
	} else if fi.Mode().Perm()&0o077 != 0 {
		t.Fatalf("key file too permissive: %v", fi.Mode())
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	k1, err := LoadOrCreateKey(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrCreateKey: %v", err)
	}
	k2, err := LoadOrCreateKey(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrCreateKey: %v", err)
	}
	enc, err := k1.EncryptToken("secret")
	if err != nil {
		t.Fatalf("EncryptToken: %v", err)
	}
	if _, err := k2.DecryptToken(enc); err == nil {
		t.Fatal("expected decryption failure under a different key")
	}
}

func TestDecryptGarbageFails(t *testing.T) {
	k, err := LoadOrCreateKey(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrCreateKey: %v", err)
	}
	if _, err := k.DecryptToken("not base64!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if _, err := k.DecryptToken("AAAA"); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}
