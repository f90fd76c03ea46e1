package keys_test

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/georgepadayatti/esign/keys"
	"github.com/georgepadayatti/esign/keys/keytest"
)

func TestLoadPKCS12(t *testing.T) {
	bundle := keytest.NewBundle(t, "s3cret")
	cred, err := keys.LoadPKCS12(bundle)
	if err != nil {
		t.Fatalf("LoadPKCS12 failed: %v", err)
	}
	if cred.Certificate.Subject.CommonName != "Test Signer" {
		t.Errorf("Expected CN 'Test Signer', got %q", cred.Certificate.Subject.CommonName)
	}
	info := keys.GetKeyInfo(cred.PrivateKey)
	if info.Type != "RSA" || info.Size != 2048 {
		t.Errorf("Unexpected key info %+v", info)
	}
}

func TestLoadPKCS12WithoutPassphrase(t *testing.T) {
	bundle := keytest.NewBundle(t, "")
	if _, err := keys.LoadPKCS12(bundle); err != nil {
		t.Fatalf("LoadPKCS12 failed: %v", err)
	}
}

func TestLoadPKCS12ECDSA(t *testing.T) {
	cert, key := keytest.NewECDSACertificate(t, "EC Signer")
	data, err := pkcs12.Modern.Encode(key, cert, nil, "pw")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	cred, err := keys.LoadPKCS12(keys.PKCS12Bundle{Data: data, Passphrase: "pw"})
	if err != nil {
		t.Fatalf("LoadPKCS12 failed: %v", err)
	}
	if info := keys.GetKeyInfo(cred.PrivateKey); info.Algorithm != "ECDSA-P-256" {
		t.Errorf("Expected ECDSA-P-256, got %s", info.Algorithm)
	}
}

func TestLoadPKCS12Errors(t *testing.T) {
	bundle := keytest.NewBundle(t, "right")

	tests := []struct {
		name     string
		bundle   keys.PKCS12Bundle
		expected error
	}{
		{"wrong passphrase", keys.PKCS12Bundle{Data: bundle.Data, Passphrase: "wrong"}, keys.ErrIncorrectPassword},
		{"empty", keys.PKCS12Bundle{}, keys.ErrEmptyBundle},
		{"garbage", keys.PKCS12Bundle{Data: []byte("not a pfx")}, keys.ErrInvalidBundle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := keys.LoadPKCS12(tt.bundle); !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestBundleFromBase64(t *testing.T) {
	bundle := keytest.NewBundle(t, "pw")
	encoded := base64.StdEncoding.EncodeToString(bundle.Data)
	wrapped := encoded[:10] + "\n  " + encoded[10:]

	decoded, err := keys.BundleFromBase64(wrapped, "pw")
	if err != nil {
		t.Fatalf("BundleFromBase64 failed: %v", err)
	}
	if _, err := keys.LoadPKCS12(decoded); err != nil {
		t.Errorf("Decoded bundle should load: %v", err)
	}

	if _, err := keys.BundleFromBase64("   ", "pw"); !errors.Is(err, keys.ErrEmptyBundle) {
		t.Errorf("Expected ErrEmptyBundle, got %v", err)
	}
	if _, err := keys.BundleFromBase64("%%%", "pw"); !errors.Is(err, keys.ErrInvalidBundle) {
		t.Errorf("Expected ErrInvalidBundle, got %v", err)
	}
}

func TestTempKeystore(t *testing.T) {
	bundle := keytest.NewBundle(t, "pw")
	ks, err := keys.NewTempKeystore(bundle)
	if err != nil {
		t.Fatalf("NewTempKeystore failed: %v", err)
	}
	path := ks.Path()

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Keystore file missing: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Errorf("Expected mode 0600, got %v", st.Mode().Perm())
	}
	if _, err := ks.Load("pw"); err != nil {
		t.Errorf("Load failed: %v", err)
	}

	if err := ks.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Keystore file should be removed, stat returned %v", err)
	}
	if err := ks.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}

func TestTempKeystoreUnwritableDir(t *testing.T) {
	bundle := keytest.NewBundle(t, "pw")
	t.Setenv("TMPDIR", filepath.Join(t.TempDir(), "missing"))

	_, err := keys.NewTempKeystore(bundle)
	if !errors.Is(err, keys.ErrKeystoreIO) {
		t.Errorf("Expected ErrKeystoreIO, got %v", err)
	}
}
