// Package locale selects the language of certificates and verification
// pages and formats dates the way an organization asked for.
package locale

import (
	"golang.org/x/text/language"
)

// CertificateTexts are the labels printed on a completion certificate.
type CertificateTexts struct {
	GeneratedOn        string
	Title              string
	DocumentID         string
	DocumentName       string
	Organization       string
	CreatedOn          string
	CompletedOn        string
	Signers            string
	DocumentHash       string
	DocumentOriginator string
	IPAddress          string
	SecurityLevel      string
	EmailOTPAuth       string
	SignatureAdoption  string
	UsingIPAddress     string
	SignerEvents       string
	SignatureColumn    string
	TimestampColumn    string
	Sent               string
	Viewed             string
	Signed             string
	VerifyCertificate  string
	ScanToVerify       string
}

// PageTexts are the strings of the public verification page.
type PageTexts struct {
	PageTitle        string
	Verified         string
	Legitimate       string
	ValidCertificate string
	DocumentInfo     string
	DocumentID       string
	DocumentName     string
	Organization     string
	Status           string
	CreatedOn        string
	CompletedOn      string
	TotalSigners     string
	DocumentHash     string
	HashNote         string
	Creator          string
	Name             string
	Email            string
	Company          string
	Signers          string
	Signer           string
	SignedOn         string
	IPAddress        string
	NotValidTitle    string
	ErrorTitle       string
	ErrorMessage     string
	SecureSignature  string
}

// Messages is the full text set of one language.
type Messages struct {
	Tag         language.Tag
	Certificate CertificateTexts
	Page        PageTexts
}

// Default is the language used when nothing else matches.
var Default = language.English

var (
	supported = []language.Tag{
		language.English,
		language.BrazilianPortuguese,
		language.Spanish,
		language.French,
		language.German,
		language.Italian,
	}
	matcher = language.NewMatcher(supported)
)

// Supported lists the available languages, default first.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Match returns the messages best matching prefs. Each preference may be a
// single tag or a full Accept-Language value; earlier preferences win.
// Unknown or empty preferences fall back to English.
func Match(prefs ...string) *Messages {
	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return catalog[Default]
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return catalog[Default]
	}
	return catalog[supported[idx]]
}

// Lookup returns the messages for tag, or nil when the language is not
// supported.
func Lookup(tag language.Tag) *Messages {
	return catalog[tag]
}
