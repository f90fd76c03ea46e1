// Package cms builds and checks the detached CMS SignedData structures
// embedded in PDF signatures.
package cms

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"
)

// OIDs for CMS and signature algorithms
var (
	OIDData       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	OIDSignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}

	OIDSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}

	OIDSHA256WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	OIDECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}

	OIDContentType          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	OIDMessageDigest        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	OIDSigningTime          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
	OIDSigningCertificateV2 = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 47}
	OIDTimeStampToken       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14}
)

// Common errors
var (
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrMissingCertificate   = errors.New("missing certificate")
	ErrDigestMismatch       = errors.New("message digest mismatch")
)

// AlgorithmIdentifier represents an algorithm identifier.
type AlgorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

// ContentInfo represents a CMS ContentInfo structure.
type ContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

// SignedData represents a CMS SignedData structure.
type SignedData struct {
	Version          int
	DigestAlgorithms []AlgorithmIdentifier `asn1:"set"`
	EncapContentInfo EncapsulatedContentInfo
	Certificates     []asn1.RawValue `asn1:"optional,implicit,tag:0,set"`
	CRLs             []asn1.RawValue `asn1:"optional,implicit,tag:1"`
	SignerInfos      []SignerInfo    `asn1:"set"`
}

// EncapsulatedContentInfo represents encapsulated content. It stays empty
// for detached signatures.
type EncapsulatedContentInfo struct {
	EContentType asn1.ObjectIdentifier
	EContent     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

// SignerInfo represents a signer's information.
// SID is IssuerAndSerialNumber directly because SignerIdentifier is a CHOICE.
type SignerInfo struct {
	Version            int
	SID                IssuerAndSerialNumber
	DigestAlgorithm    AlgorithmIdentifier
	SignedAttrs        []Attribute `asn1:"optional,implicit,tag:0,set"`
	SignatureAlgorithm AlgorithmIdentifier
	Signature          []byte
	UnsignedAttrs      []Attribute `asn1:"optional,implicit,tag:1,set"`
}

// signerInfoRaw keeps the signed attributes as encoded, which is what the
// signature covers.
type signerInfoRaw struct {
	Version            int
	SID                IssuerAndSerialNumber
	DigestAlgorithm    AlgorithmIdentifier
	SignedAttrs        asn1.RawValue `asn1:"optional,tag:0"`
	SignatureAlgorithm AlgorithmIdentifier
	Signature          []byte
	UnsignedAttrs      asn1.RawValue `asn1:"optional,tag:1"`
}

type signedDataRaw struct {
	Version          int
	DigestAlgorithms []AlgorithmIdentifier `asn1:"set"`
	EncapContentInfo EncapsulatedContentInfo
	Certificates     []asn1.RawValue `asn1:"optional,implicit,tag:0,set"`
	CRLs             []asn1.RawValue `asn1:"optional,implicit,tag:1"`
	SignerInfos      []asn1.RawValue `asn1:"set"`
}

// IssuerAndSerialNumber identifies a certificate by issuer and serial.
type IssuerAndSerialNumber struct {
	Issuer       asn1.RawValue
	SerialNumber *big.Int
}

// Attribute represents a CMS attribute.
type Attribute struct {
	Type   asn1.ObjectIdentifier
	Values []asn1.RawValue `asn1:"set"`
}

// SigningCertificateV2 represents the signing certificate attribute.
type SigningCertificateV2 struct {
	Certs []ESSCertIDv2
}

// ESSCertIDv2 represents a certificate identifier.
type ESSCertIDv2 struct {
	HashAlgorithm AlgorithmIdentifier `asn1:"optional"`
	CertHash      []byte
	IssuerSerial  IssuerSerial `asn1:"optional"`
}

// IssuerSerial identifies a certificate by issuer and serial.
type IssuerSerial struct {
	Issuer       GeneralNames
	SerialNumber *big.Int
}

// GeneralNames represents a sequence of GeneralName.
type GeneralNames struct {
	Names []asn1.RawValue
}

// SignatureAlgorithm pairs a digest with a signature scheme.
type SignatureAlgorithm struct {
	DigestAlgorithm    asn1.ObjectIdentifier
	SignatureAlgorithm asn1.ObjectIdentifier
	Hash               crypto.Hash
}

// Supported signature algorithms
var (
	SHA256WithRSA = SignatureAlgorithm{
		DigestAlgorithm:    OIDSHA256,
		SignatureAlgorithm: OIDSHA256WithRSA,
		Hash:               crypto.SHA256,
	}
	SHA256WithECDSA = SignatureAlgorithm{
		DigestAlgorithm:    OIDSHA256,
		SignatureAlgorithm: OIDECDSAWithSHA256,
		Hash:               crypto.SHA256,
	}
)

// AlgorithmForKey picks the signature algorithm matching the key type.
func AlgorithmForKey(key crypto.Signer) (SignatureAlgorithm, error) {
	switch key.Public().(type) {
	case *rsa.PublicKey:
		return SHA256WithRSA, nil
	case *ecdsa.PublicKey:
		return SHA256WithECDSA, nil
	default:
		return SignatureAlgorithm{}, fmt.Errorf("%w: %T", ErrUnsupportedAlgorithm, key.Public())
	}
}

// Timestamper obtains an RFC 3161 timestamp token over data.
type Timestamper interface {
	Timestamp(data []byte) ([]byte, error)
}

// CMSBuilder builds CMS signed data structures.
type CMSBuilder struct {
	Certificate *x509.Certificate
	CertChain   []*x509.Certificate
	PrivateKey  crypto.Signer
	Algorithm   SignatureAlgorithm
	SigningTime time.Time
	// Timestamper, when set, stamps the signature value and the token is
	// stored as an unsigned attribute.
	Timestamper Timestamper
}

// NewCMSBuilder creates a new CMS builder.
func NewCMSBuilder(cert *x509.Certificate, key crypto.Signer, alg SignatureAlgorithm) *CMSBuilder {
	return &CMSBuilder{
		Certificate: cert,
		PrivateKey:  key,
		Algorithm:   alg,
		SigningTime: time.Now().UTC(),
	}
}

// Sign creates a detached CMS signature over data.
func (b *CMSBuilder) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	signedAttrs, err := b.buildSignedAttributes(digest[:])
	if err != nil {
		return nil, fmt.Errorf("failed to build signed attributes: %w", err)
	}
	signedAttrs = derSortAttributes(signedAttrs)

	// The signature covers the attributes encoded as a SET.
	signedAttrsBytes, err := asn1.Marshal(signedAttrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signed attributes: %w", err)
	}
	signedAttrsBytes[0] = 0x31
	attrDigest := sha256.Sum256(signedAttrsBytes)

	signature, err := b.PrivateKey.Sign(rand.Reader, attrDigest[:], b.Algorithm.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	signerInfo := SignerInfo{
		Version: 1,
		SID: IssuerAndSerialNumber{
			Issuer:       asn1.RawValue{FullBytes: b.Certificate.RawIssuer},
			SerialNumber: b.Certificate.SerialNumber,
		},
		DigestAlgorithm: AlgorithmIdentifier{
			Algorithm:  b.Algorithm.DigestAlgorithm,
			Parameters: asn1.RawValue{Tag: 5},
		},
		SignedAttrs: signedAttrs,
		SignatureAlgorithm: AlgorithmIdentifier{
			Algorithm:  b.Algorithm.SignatureAlgorithm,
			Parameters: signatureAlgorithmParameters(b.Algorithm.SignatureAlgorithm),
		},
		Signature: signature,
	}

	if b.Timestamper != nil {
		token, err := b.Timestamper.Timestamp(signature)
		if err != nil {
			return nil, fmt.Errorf("failed to timestamp signature: %w", err)
		}
		signerInfo.UnsignedAttrs = []Attribute{{
			Type:   OIDTimeStampToken,
			Values: []asn1.RawValue{{FullBytes: token}},
		}}
	}

	signedData := SignedData{
		Version: 1,
		DigestAlgorithms: []AlgorithmIdentifier{{
			Algorithm:  b.Algorithm.DigestAlgorithm,
			Parameters: asn1.RawValue{Tag: 5},
		}},
		EncapContentInfo: EncapsulatedContentInfo{EContentType: OIDData},
		SignerInfos:      []SignerInfo{signerInfo},
	}
	signedData.Certificates = append(signedData.Certificates, asn1.RawValue{FullBytes: b.Certificate.Raw})
	for _, cert := range b.CertChain {
		signedData.Certificates = append(signedData.Certificates, asn1.RawValue{FullBytes: cert.Raw})
	}

	signedDataBytes, err := asn1.Marshal(signedData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signed data: %w", err)
	}
	return asn1.Marshal(ContentInfo{
		ContentType: OIDSignedData,
		Content:     asn1.RawValue{Class: 2, Tag: 0, IsCompound: true, Bytes: signedDataBytes},
	})
}

func signatureAlgorithmParameters(oid asn1.ObjectIdentifier) asn1.RawValue {
	if oid.Equal(OIDSHA256WithRSA) {
		return asn1.RawValue{Tag: 5}
	}
	return asn1.RawValue{}
}

func (b *CMSBuilder) buildSignedAttributes(messageDigest []byte) ([]Attribute, error) {
	var attrs []Attribute
	add := func(oid asn1.ObjectIdentifier, value interface{}) error {
		der, err := asn1.Marshal(value)
		if err != nil {
			return err
		}
		attrs = append(attrs, Attribute{Type: oid, Values: []asn1.RawValue{{FullBytes: der}}})
		return nil
	}

	if err := add(OIDContentType, OIDData); err != nil {
		return nil, err
	}
	if err := add(OIDMessageDigest, messageDigest); err != nil {
		return nil, err
	}
	if err := add(OIDSigningTime, b.SigningTime.UTC()); err != nil {
		return nil, err
	}

	certHash := sha256.Sum256(b.Certificate.Raw)
	signingCert := SigningCertificateV2{
		Certs: []ESSCertIDv2{{
			HashAlgorithm: AlgorithmIdentifier{Algorithm: OIDSHA256, Parameters: asn1.RawValue{Tag: 5}},
			CertHash:      certHash[:],
			IssuerSerial: IssuerSerial{
				Issuer: GeneralNames{Names: []asn1.RawValue{{
					Class:      asn1.ClassContextSpecific,
					Tag:        4, // directoryName
					IsCompound: true,
					Bytes:      b.Certificate.RawIssuer,
				}}},
				SerialNumber: b.Certificate.SerialNumber,
			},
		}},
	}
	if err := add(OIDSigningCertificateV2, signingCert); err != nil {
		return nil, err
	}
	return attrs, nil
}

// derSortAttributes orders attributes by their DER encoding, the order in
// which encoding/asn1 writes a SET OF.
func derSortAttributes(attrs []Attribute) []Attribute {
	type attrWithDER struct {
		attr Attribute
		der  []byte
	}
	sorted := make([]attrWithDER, len(attrs))
	for i, attr := range attrs {
		der, _ := asn1.Marshal(attr)
		sorted[i] = attrWithDER{attr: attr, der: der}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].der, sorted[j].der) < 0
	})
	result := make([]Attribute, len(attrs))
	for i, a := range sorted {
		result[i] = a.attr
	}
	return result
}

// SignerDetails describes a verified signature.
type SignerDetails struct {
	Certificate    *x509.Certificate
	Certificates   []*x509.Certificate
	SigningTime    time.Time
	TimestampToken []byte
}

// Verify checks a detached CMS signature against signedContent: the message
// digest attribute must match the content and the signature must match the
// signed attributes. Certificate trust is not evaluated.
func Verify(cmsData, signedContent []byte) (*SignerDetails, error) {
	var contentInfo ContentInfo
	if _, err := asn1.Unmarshal(cmsData, &contentInfo); err != nil {
		return nil, fmt.Errorf("%w: parsing ContentInfo: %v", ErrInvalidSignature, err)
	}
	if !contentInfo.ContentType.Equal(OIDSignedData) {
		return nil, fmt.Errorf("%w: expected SignedData, got %v", ErrInvalidSignature, contentInfo.ContentType)
	}
	var sd signedDataRaw
	if _, err := asn1.Unmarshal(contentInfo.Content.Bytes, &sd); err != nil {
		return nil, fmt.Errorf("%w: parsing SignedData: %v", ErrInvalidSignature, err)
	}
	if len(sd.SignerInfos) == 0 {
		return nil, fmt.Errorf("%w: no signer infos", ErrInvalidSignature)
	}
	var si signerInfoRaw
	if _, err := asn1.Unmarshal(sd.SignerInfos[0].FullBytes, &si); err != nil {
		return nil, fmt.Errorf("%w: parsing SignerInfo: %v", ErrInvalidSignature, err)
	}
	if !si.DigestAlgorithm.Algorithm.Equal(OIDSHA256) {
		return nil, fmt.Errorf("%w: digest %v", ErrUnsupportedAlgorithm, si.DigestAlgorithm.Algorithm)
	}

	details := &SignerDetails{}
	for _, raw := range sd.Certificates {
		cert, err := x509.ParseCertificate(raw.FullBytes)
		if err != nil {
			continue
		}
		details.Certificates = append(details.Certificates, cert)
		if si.SID.SerialNumber != nil && cert.SerialNumber.Cmp(si.SID.SerialNumber) == 0 &&
			bytes.Equal(cert.RawIssuer, si.SID.Issuer.FullBytes) {
			details.Certificate = cert
		}
	}
	if details.Certificate == nil {
		return nil, ErrMissingCertificate
	}

	attrs, err := parseAttributes(si.SignedAttrs.Bytes)
	if err != nil {
		return nil, err
	}
	var foundDigest []byte
	for _, attr := range attrs {
		if len(attr.Values) == 0 {
			continue
		}
		switch {
		case attr.Type.Equal(OIDMessageDigest):
			if _, err := asn1.Unmarshal(attr.Values[0].FullBytes, &foundDigest); err != nil {
				return nil, fmt.Errorf("%w: message digest: %v", ErrInvalidSignature, err)
			}
		case attr.Type.Equal(OIDSigningTime):
			_, _ = asn1.Unmarshal(attr.Values[0].FullBytes, &details.SigningTime)
		}
	}
	computed := sha256.Sum256(signedContent)
	if foundDigest == nil || !bytes.Equal(computed[:], foundDigest) {
		return nil, ErrDigestMismatch
	}

	// Re-tag the [0] IMPLICIT attributes as the SET that was signed.
	signedAttrs := append([]byte(nil), si.SignedAttrs.FullBytes...)
	if len(signedAttrs) == 0 {
		return nil, fmt.Errorf("%w: no signed attributes", ErrInvalidSignature)
	}
	signedAttrs[0] = 0x31
	attrDigest := sha256.Sum256(signedAttrs)
	if err := verifySignature(details.Certificate.PublicKey, attrDigest[:], si.Signature); err != nil {
		return nil, err
	}

	unsigned, err := parseAttributes(si.UnsignedAttrs.Bytes)
	if err != nil {
		return nil, err
	}
	for _, attr := range unsigned {
		if attr.Type.Equal(OIDTimeStampToken) && len(attr.Values) > 0 {
			details.TimestampToken = attr.Values[0].FullBytes
		}
	}
	return details, nil
}

func parseAttributes(data []byte) ([]Attribute, error) {
	var attrs []Attribute
	for rest := data; len(rest) > 0; {
		var attr Attribute
		var err error
		rest, err = asn1.Unmarshal(rest, &attr)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute: %v", ErrInvalidSignature, err)
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func verifySignature(pub interface{}, digest, sig []byte) error {
	switch key := pub.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest, sig); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(key, digest, sig) {
			return ErrInvalidSignature
		}
		return nil
	default:
		return fmt.Errorf("%w: key type %T", ErrUnsupportedAlgorithm, pub)
	}
}
