// Package keytest creates throwaway signing identities for tests.
package keytest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/georgepadayatti/esign/keys"
)

// NewCertificate returns a self-signed RSA certificate and its key.
func NewCertificate(tb testing.TB, commonName string) (*x509.Certificate, *rsa.PrivateKey) {
	tb.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("GenerateKey failed: %v", err)
	}
	return selfSigned(tb, commonName, key, &key.PublicKey), key
}

// NewECDSACertificate returns a self-signed P-256 certificate and its key.
func NewECDSACertificate(tb testing.TB, commonName string) (*x509.Certificate, *ecdsa.PrivateKey) {
	tb.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		tb.Fatalf("GenerateKey failed: %v", err)
	}
	return selfSigned(tb, commonName, key, &key.PublicKey), key
}

func selfSigned(tb testing.TB, commonName string, key interface{}, pub interface{}) *x509.Certificate {
	tb.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"esign tests"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, key)
	if err != nil {
		tb.Fatalf("CreateCertificate failed: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		tb.Fatalf("ParseCertificate failed: %v", err)
	}
	return cert
}

// NewBundle returns a PKCS#12 bundle holding a fresh RSA identity,
// protected by passphrase.
func NewBundle(tb testing.TB, passphrase string) keys.PKCS12Bundle {
	tb.Helper()
	cert, key := NewCertificate(tb, "Test Signer")
	data, err := pkcs12.Modern.Encode(key, cert, nil, passphrase)
	if err != nil {
		tb.Fatalf("pkcs12 Encode failed: %v", err)
	}
	return keys.PKCS12Bundle{Data: data, Passphrase: passphrase}
}
