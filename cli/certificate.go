package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/esign/certificate"
	"github.com/georgepadayatti/esign/config"
	"github.com/georgepadayatti/esign/document"
	"github.com/georgepadayatti/esign/keys"
	"github.com/georgepadayatti/esign/locale"
	"github.com/georgepadayatti/esign/pdf/images"
	"github.com/georgepadayatti/esign/sign/finalizer"
	"github.com/georgepadayatti/esign/sign/signers"
	"github.com/georgepadayatti/esign/storage"
)

// CertificateOptions contains options for the certificate command.
type CertificateOptions struct {
	Lang       string
	Logo       string
	PFXFile    string
	Passphrase string
	ESignName  string
}

// CertificateSummary is the YAML input of the certificate command.
type CertificateSummary struct {
	DocumentID      string              `yaml:"document-id"`
	DocumentName    string              `yaml:"document-name"`
	ContentHash     string              `yaml:"content-hash"`
	CreatedAt       time.Time           `yaml:"created-at"`
	CompletedAt     time.Time           `yaml:"completed-at"`
	Locale          string              `yaml:"locale"`
	OriginIP        string              `yaml:"origin-ip"`
	RequireOTP      bool                `yaml:"require-otp"`
	VerificationURL string              `yaml:"verification-url"`
	Sender          SummaryParty        `yaml:"sender"`
	Organization    SummaryOrganization `yaml:"organization"`
	Signers         []SummarySigner     `yaml:"signers"`
}

// SummaryParty is the sender of the document.
type SummaryParty struct {
	Name    string `yaml:"name"`
	Email   string `yaml:"email"`
	Company string `yaml:"company"`
}

// SummaryOrganization carries the date preferences of the certificate.
type SummaryOrganization struct {
	Name       string `yaml:"name"`
	Timezone   string `yaml:"timezone"`
	DateFormat string `yaml:"date-format"`
	Is12Hour   bool   `yaml:"is-12-hour"`
}

// SummarySigner is one signers table row.
type SummarySigner struct {
	Name           string     `yaml:"name"`
	Email          string     `yaml:"email"`
	IP             string     `yaml:"ip"`
	SignatureImage string     `yaml:"signature-image"`
	SentOn         *time.Time `yaml:"sent-on"`
	ViewedOn       *time.Time `yaml:"viewed-on"`
	SignedOn       *time.Time `yaml:"signed-on"`
}

// CertificateCommand implements the 'certificate' command.
func CertificateCommand(args []string) {
	certFlags := flag.NewFlagSet("certificate", flag.ExitOnError)

	var opts CertificateOptions

	certFlags.StringVar(&opts.Lang, "lang", "", "Language of the certificate (default from the summary, then en)")
	certFlags.StringVar(&opts.Logo, "logo", "", "PNG or JPEG logo drawn in the header")
	certFlags.StringVar(&opts.PFXFile, "pfx", "", "Sign the certificate with this PKCS#12 bundle")
	certFlags.StringVar(&opts.Passphrase, "passphrase", os.Getenv(config.EnvPassphrase), "Passphrase of the bundle (default from PASS_PHRASE)")
	certFlags.StringVar(&opts.ESignName, "esign-name", "esign", "Product name used in the signature reason")

	certFlags.Usage = func() {
		fmt.Printf("Usage: %s certificate [options] <summary.yaml> <output.pdf>\n\n", os.Args[0])
		fmt.Println("Render a completion certificate from a YAML document summary.")
		fmt.Println("")
		fmt.Println("Options:")
		certFlags.PrintDefaults()
	}

	if err := certFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(certFlags.Args()) < 2 {
		certFlags.Usage()
		osExit(1)
		return
	}

	if err := renderCertificate(context.Background(), certFlags.Arg(0), certFlags.Arg(1), &opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
		return
	}
	fmt.Fprintf(stdout, "Certificate written to %s\n", certFlags.Arg(1))
}

// LoadCertificateSummary reads a YAML summary file.
func LoadCertificateSummary(path string) (*CertificateSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var s CertificateSummary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &s, nil
}

// Context converts the summary for the generator.
func (s *CertificateSummary) Context(msgs *locale.Messages) *certificate.Context {
	c := &certificate.Context{
		DocumentID:   s.DocumentID,
		DocumentName: s.DocumentName,
		ContentHash:  s.ContentHash,
		CreatedAt:    s.CreatedAt,
		SignerCount:  len(s.Signers),
		Sender: document.Party{
			Name:    s.Sender.Name,
			Email:   s.Sender.Email,
			Company: s.Sender.Company,
		},
		Organization: document.Organization{
			Name:       s.Organization.Name,
			Timezone:   s.Organization.Timezone,
			DateFormat: s.Organization.DateFormat,
			Is12Hour:   s.Organization.Is12Hour,
		},
		OriginIP:        s.OriginIP,
		RequireOTP:      s.RequireOTP,
		VerificationURL: s.VerificationURL,
		Messages:        msgs,
	}
	if !s.CompletedAt.IsZero() {
		completed := s.CompletedAt
		c.CompletedAt = &completed
	}
	for _, sg := range s.Signers {
		c.Signers = append(c.Signers, certificate.Signer{
			Name:           sg.Name,
			Email:          sg.Email,
			IP:             sg.IP,
			SignatureImage: sg.SignatureImage,
			SentOn:         sg.SentOn,
			ViewedOn:       sg.ViewedOn,
			SignedOn:       sg.SignedOn,
		})
	}
	if c.SignerCount == 0 {
		c.SignerCount = 1
	}
	return c
}

func renderCertificate(ctx context.Context, summaryPath, outputPath string, opts *CertificateOptions) error {
	summary, err := LoadCertificateSummary(summaryPath)
	if err != nil {
		return err
	}

	gen := certificate.NewGenerator(storage.NewURLFetcher(10*time.Second), nil, nil)
	if opts.Logo != "" {
		raw, err := os.ReadFile(opts.Logo)
		if err != nil {
			return fmt.Errorf("failed to read logo: %w", err)
		}
		if gen.Logo, err = images.Decode(raw); err != nil {
			return fmt.Errorf("failed to decode logo: %w", err)
		}
	}

	out, err := gen.Generate(ctx, summary.Context(locale.Match(opts.Lang, summary.Locale)))
	if err != nil {
		return err
	}

	if opts.PFXFile != "" {
		bundle, err := keys.BundleFromFile(opts.PFXFile, opts.Passphrase)
		if err != nil {
			return fmt.Errorf("failed to load bundle: %w", err)
		}
		finalized, err := finalizer.New(nil, nil).Finalize(out, finalizer.Options{
			Reason:   fmt.Sprintf("Digitally signed by %s.", opts.ESignName),
			Location: "n/a",
			Name:     opts.ESignName,
		})
		if err != nil {
			return fmt.Errorf("failed to prepare certificate: %w", err)
		}
		if out, err = signers.NewEngine(nil, nil).Sign(finalized, bundle); err != nil {
			return fmt.Errorf("failed to sign certificate: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
