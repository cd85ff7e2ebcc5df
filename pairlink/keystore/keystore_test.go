package keystore

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pairlink/go-pairlink/pairlink/encoding"
	"github.com/pairlink/go-pairlink/pairlink/identity"
)

func testKeystore(t *testing.T) (*Keystore, identity.KeyPair) {
	t.Helper()
	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	ks, err := New("desktop", kp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ks, kp
}

func TestSealUnsealRoundTrip(t *testing.T) {
	ks, kp := testKeystore(t)
	peer, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate peer: %v", err)
	}
	if err := ks.SetPairing("mobile", peer.Public); err != nil {
		t.Fatalf("SetPairing: %v", err)
	}

	blob, err := ks.Seal("correct horse battery staple")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	got, err := Unseal(blob, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}

	if got.DeviceID() != "desktop" {
		t.Fatalf("DeviceID = %q", got.DeviceID())
	}
	if got.KeyPair() != kp {
		t.Fatal("unsealed keypair differs")
	}
	key, ok := got.Pairing("mobile")
	if !ok {
		t.Fatal("pairing lost in round trip")
	}
	if key != peer.Public {
		t.Fatal("unsealed pairing key differs")
	}
}

func TestUnsealWrongPassphrase(t *testing.T) {
	ks, _ := testKeystore(t)
	blob, err := ks.Seal("right")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := Unseal(blob, "wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("want ErrWrongPassphrase, got %v", err)
	}
}

func TestUnsealTamperedBlob(t *testing.T) {
	ks, _ := testKeystore(t)
	blob, err := ks.Seal("pass")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	var b struct {
		Version    int    `json:"v"`
		KDF        string `json:"kdf"`
		Salt       string `json:"salt"`
		Nonce      string `json:"nonce"`
		Ciphertext string `json:"ciphertext"`
	}
	if err := json.Unmarshal(blob, &b); err != nil {
		t.Fatalf("Unmarshal blob: %v", err)
	}
	ct, err := encoding.DecodeBytes(b.Ciphertext)
	if err != nil {
		t.Fatalf("decode ciphertext: %v", err)
	}
	ct[0] ^= 0x01
	b.Ciphertext = encoding.EncodeBytes(ct)
	tampered, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal tampered: %v", err)
	}

	if _, err := Unseal(tampered, "pass"); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("tampered blob: want ErrWrongPassphrase, got %v", err)
	}
}

func TestUnsealCorruptBlob(t *testing.T) {
	ks, _ := testKeystore(t)
	blob, err := ks.Seal("pass")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	cases := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("not a keystore")},
		{"empty object", []byte(`{}`)},
		{"future version", bytes.Replace(blob, []byte(`"v":1`), []byte(`"v":2`), 1)},
		{"unknown kdf", bytes.Replace(blob, []byte(`"kdf":"argon2id"`), []byte(`"kdf":"pbkdf2"`), 1)},
		{"wrong salt length", bytes.Replace(blob, []byte(`"salt":"`), []byte(`"salt":"AAAA`), 1)},
	}
	for _, tc := range cases {
		if _, err := Unseal(tc.data, "pass"); !errors.Is(err, ErrCorruptKeystore) {
			t.Errorf("%s: want ErrCorruptKeystore, got %v", tc.name, err)
		}
	}
}

// The sealed blob must not contain the private key, in raw or base64 form.
func TestSealedBlobHidesKeyMaterial(t *testing.T) {
	ks, kp := testKeystore(t)
	blob, err := ks.Seal("pass")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(blob, kp.Private[:]) {
		t.Fatal("sealed blob contains raw private key")
	}
	if strings.Contains(string(blob), encoding.EncodeKey(kp.Private)) {
		t.Fatal("sealed blob contains base64 private key")
	}
	if strings.Contains(string(blob), "desktop") {
		t.Fatal("sealed blob leaks the device ID")
	}
}

func TestSetPairingReplaces(t *testing.T) {
	ks, _ := testKeystore(t)
	first, _ := identity.Generate()
	second, _ := identity.Generate()

	if err := ks.SetPairing("mobile", first.Public); err != nil {
		t.Fatalf("SetPairing: %v", err)
	}
	if err := ks.SetPairing("mobile", second.Public); err != nil {
		t.Fatalf("SetPairing again: %v", err)
	}

	if n := len(ks.Pairings()); n != 1 {
		t.Fatalf("pairing count = %d, want 1", n)
	}
	key, ok := ks.Pairing("mobile")
	if !ok || key != second.Public {
		t.Fatal("re-pairing did not replace the stored key")
	}

	ks.RemovePairing("mobile")
	if _, ok := ks.Pairing("mobile"); ok {
		t.Fatal("pairing survived removal")
	}
	ks.RemovePairing("mobile") // idempotent
}

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)

	ks, kp := testKeystore(t)
	peer, _ := identity.Generate()
	if err := ks.SetPairing("mobile", peer.Public); err != nil {
		t.Fatalf("SetPairing: %v", err)
	}
	if err := ks.WriteFile(path, "pass"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Fatalf("file permissions = %o, want 600", perm)
		}
	}

	got, err := ReadFile(path, "pass")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.DeviceID() != ks.DeviceID() || got.KeyPair() != kp {
		t.Fatal("file round trip lost identity")
	}
	if _, ok := got.Pairing("mobile"); !ok {
		t.Fatal("file round trip lost pairing")
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.enc"), "pass"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: %v", err)
	}
}

func TestNewRejectsEmptyDeviceID(t *testing.T) {
	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := New("", kp); err == nil {
		t.Fatal("empty device ID accepted")
	}
}
