// Package keys loads the signing identity: a certificate, its chain and the
// matching private key, delivered as a PKCS#12 bundle.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"software.sslmate.com/src/go-pkcs12"
)

// Common errors
var (
	ErrEmptyBundle       = errors.New("empty PKCS#12 bundle")
	ErrInvalidBundle     = errors.New("invalid PKCS#12 bundle")
	ErrIncorrectPassword = errors.New("incorrect PKCS#12 passphrase")
	ErrUnknownKeyType    = errors.New("unknown private key type")
	// ErrKeystoreIO wraps failures to create or write a temporary keystore.
	ErrKeystoreIO        = errors.New("keystore file")
)

// PrivateKey represents a private key that can be used for signing.
type PrivateKey interface {
	crypto.Signer
}

// PKCS12Bundle is the raw signing identity as configured: the PFX bytes and
// an optional passphrase.
type PKCS12Bundle struct {
	Data       []byte
	Passphrase string
}

// BundleFromBase64 decodes a base64 PFX, the form it takes in environment
// variables. Whitespace inside the value is ignored.
func BundleFromBase64(encoded, passphrase string) (PKCS12Bundle, error) {
	clean := strings.Join(strings.Fields(encoded), "")
	if clean == "" {
		return PKCS12Bundle{}, ErrEmptyBundle
	}
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return PKCS12Bundle{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	return PKCS12Bundle{Data: data, Passphrase: passphrase}, nil
}

// BundleFromFile reads a PFX file.
func BundleFromFile(path, passphrase string) (PKCS12Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PKCS12Bundle{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return PKCS12Bundle{Data: data, Passphrase: passphrase}, nil
}

// Credential holds a certificate and key loaded from a PKCS#12 bundle.
type Credential struct {
	Certificate *x509.Certificate
	PrivateKey  PrivateKey
	CACerts     []*x509.Certificate
}

// LoadPKCS12 decodes the bundle. A wrong passphrase is reported as
// ErrIncorrectPassword, anything else that cannot be decoded as
// ErrInvalidBundle.
func LoadPKCS12(bundle PKCS12Bundle) (*Credential, error) {
	if len(bundle.Data) == 0 {
		return nil, ErrEmptyBundle
	}
	key, cert, caCerts, err := pkcs12.DecodeChain(bundle.Data, bundle.Passphrase)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, ErrIncorrectPassword
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	signer, err := toPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return &Credential{Certificate: cert, PrivateKey: signer, CACerts: caCerts}, nil
}

func toPrivateKey(key interface{}) (PrivateKey, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKeyType, key)
	}
}

// KeyInfo contains information about a private key.
type KeyInfo struct {
	Type      string
	Size      int
	Algorithm string
}

// GetKeyInfo returns information about a private key.
func GetKeyInfo(key PrivateKey) KeyInfo {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return KeyInfo{Type: "RSA", Size: k.N.BitLen(), Algorithm: "RSA"}
	case *ecdsa.PrivateKey:
		return KeyInfo{Type: "ECDSA", Size: k.Curve.Params().BitSize, Algorithm: "ECDSA-" + k.Curve.Params().Name}
	case ed25519.PrivateKey:
		return KeyInfo{Type: "Ed25519", Size: 256, Algorithm: "Ed25519"}
	default:
		return KeyInfo{Type: "Unknown"}
	}
}

// TempKeystore is a PKCS#12 bundle materialized as a private temporary file
// for tools that want a path. Close removes the file.
type TempKeystore struct {
	path string
}

// NewTempKeystore writes the bundle to a new file readable only by the
// current user.
func NewTempKeystore(bundle PKCS12Bundle) (*TempKeystore, error) {
	f, err := os.CreateTemp("", "esign-*.pfx")
	if err != nil {
		return nil, fmt.Errorf("%w: creating: %w", ErrKeystoreIO, err)
	}
	ks := &TempKeystore{path: f.Name()}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		ks.Close()
		return nil, fmt.Errorf("%w: securing: %w", ErrKeystoreIO, err)
	}
	if _, err := f.Write(bundle.Data); err != nil {
		f.Close()
		ks.Close()
		return nil, fmt.Errorf("%w: writing: %w", ErrKeystoreIO, err)
	}
	if err := f.Close(); err != nil {
		ks.Close()
		return nil, fmt.Errorf("%w: writing: %w", ErrKeystoreIO, err)
	}
	return ks, nil
}

// Path returns the location of the keystore file.
func (k *TempKeystore) Path() string { return k.path }

// Load decodes the keystore file.
func (k *TempKeystore) Load(passphrase string) (*Credential, error) {
	bundle, err := BundleFromFile(k.path, passphrase)
	if err != nil {
		return nil, err
	}
	return LoadPKCS12(bundle)
}

// Close removes the keystore file. It is safe to call more than once.
func (k *TempKeystore) Close() error {
	if k.path == "" {
		return nil
	}
	err := os.Remove(k.path)
	k.path = ""
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
