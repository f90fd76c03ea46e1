package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/georgepadayatti/esign/pdf/form"
	"github.com/georgepadayatti/esign/pdf/reader"
	"github.com/georgepadayatti/esign/pdf/writer"
	"github.com/georgepadayatti/esign/sign/digest"
	"github.com/georgepadayatti/esign/sign/signers"
	"github.com/georgepadayatti/esign/sign/timestamps"
)

// VerifyOptions contains options for the verify command.
type VerifyOptions struct {
	JSON bool
	// Hash, when set, must equal the SHA-256 of the file.
	Hash string
}

// VerifyCommand implements the 'verify' command.
func VerifyCommand(args []string) {
	verifyFlags := flag.NewFlagSet("verify", flag.ExitOnError)

	var opts VerifyOptions

	verifyFlags.BoolVar(&opts.JSON, "json", false, "Output results in JSON format")
	verifyFlags.StringVar(&opts.Hash, "hash", "", "Expected SHA-256 of the file, as published on the verification page")

	verifyFlags.Usage = func() {
		fmt.Printf("Usage: %s verify [options] <input.pdf>\n\n", os.Args[0])
		fmt.Println("Check that the last signature of a PDF covers the file unchanged.")
		fmt.Println("")
		fmt.Println("Options:")
		verifyFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s verify document.pdf\n", os.Args[0])
		fmt.Printf("  %s verify -json -hash 3a7bd3e2... document.pdf\n", os.Args[0])
	}

	if err := verifyFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(verifyFlags.Args()) < 1 {
		verifyFlags.Usage()
		osExit(1)
		return
	}

	report, err := verifyFile(verifyFlags.Arg(0), &opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
		return
	}

	if opts.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		outputText(report)
	}

	if report.Status != StatusValid {
		osExit(1)
	}
}

// Verification statuses
const (
	StatusValid   = "VALID"
	StatusInvalid = "INVALID"
)

// VerifyReport is the result of the verify command.
type VerifyReport struct {
	File            string   `json:"file"`
	Status          string   `json:"status"`
	SHA256          string   `json:"sha256"`
	HashMatches     *bool    `json:"hash_matches,omitempty"`
	CoversWholeFile bool     `json:"covers_whole_file"`
	ByteRange       string   `json:"byte_range,omitempty"`
	FieldName       string   `json:"field_name,omitempty"`
	SignerName      string   `json:"signer_name,omitempty"`
	Issuer          string   `json:"issuer,omitempty"`
	SigningTime     string   `json:"signing_time,omitempty"`
	TimestampTime   string   `json:"timestamp_time,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	Location        string   `json:"location,omitempty"`
	ContactInfo     string   `json:"contact_info,omitempty"`
	Errors          []string `json:"errors,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// verifyFile checks the last signature of path. Verification failures are
// reported in the result; only unreadable files are errors.
func verifyFile(path string, opts *VerifyOptions) (*VerifyReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	report := &VerifyReport{File: path, Status: StatusValid, SHA256: digest.Hex(data)}
	if opts.Hash != "" {
		ok := digest.Matches(data, opts.Hash)
		report.HashMatches = &ok
		if !ok {
			report.Errors = append(report.Errors, "file hash does not match the expected value")
		}
	}

	status, err := signers.VerifyPDF(data)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		report.Status = StatusInvalid
		return report, nil
	}
	report.CoversWholeFile = status.CoversWholeFile
	report.ByteRange = status.ByteRange.String()
	report.SignerName = status.Certificate.Subject.CommonName
	report.Issuer = status.Certificate.Issuer.CommonName
	if !status.SigningTime.IsZero() {
		report.SigningTime = status.SigningTime.Format(time.RFC3339)
	}
	if len(status.TimestampToken) > 0 {
		if info, err := timestamps.Inspect(status.TimestampToken); err == nil {
			report.TimestampTime = info.Time.Format(time.RFC3339)
		} else {
			report.Warnings = append(report.Warnings, err.Error())
		}
	}
	if !status.CoversWholeFile {
		report.Warnings = append(report.Warnings, "the file was modified after signing")
	}
	if err := describeSignature(data, report); err != nil {
		report.Warnings = append(report.Warnings, err.Error())
	}

	if len(report.Errors) > 0 {
		report.Status = StatusInvalid
	}
	return report, nil
}

// describeSignature copies the entries of the last signature dictionary.
func describeSignature(data []byte, report *VerifyReport) error {
	r, err := reader.NewPdfFileReaderFromBytes(data)
	if err != nil {
		return fmt.Errorf("reading PDF: %w", err)
	}
	fields, err := form.ReadFields(writer.NewIncrementalWriter(r))
	if err != nil {
		return fmt.Errorf("reading form: %w", err)
	}
	for i := len(fields) - 1; i >= 0; i-- {
		f := fields[i]
		if f.Type != form.FieldTypeSignature {
			continue
		}
		sig := r.ResolveDict(f.Value)
		if sig == nil {
			continue
		}
		report.FieldName = f.FullName
		report.Reason = sig.GetString("Reason")
		report.Location = sig.GetString("Location")
		report.ContactInfo = sig.GetString("ContactInfo")
		return nil
	}
	return fmt.Errorf("no signature field found")
}

func outputText(r *VerifyReport) {
	fmt.Fprintf(stdout, "File: %s\n", r.File)
	fmt.Fprintf(stdout, "Status: %s\n", r.Status)
	fmt.Fprintf(stdout, "SHA-256: %s\n", r.SHA256)
	if r.HashMatches != nil {
		fmt.Fprintf(stdout, "Hash matches: %t\n", *r.HashMatches)
	}
	if r.SignerName != "" {
		fmt.Fprintf(stdout, "Signer: %s (issued by %s)\n", r.SignerName, r.Issuer)
		fmt.Fprintf(stdout, "Field: %s\n", r.FieldName)
		fmt.Fprintf(stdout, "Byte range: %s\n", r.ByteRange)
		fmt.Fprintf(stdout, "Covers whole file: %t\n", r.CoversWholeFile)
	}
	if r.SigningTime != "" {
		fmt.Fprintf(stdout, "Signing time: %s\n", r.SigningTime)
	}
	if r.TimestampTime != "" {
		fmt.Fprintf(stdout, "Timestamp: %s\n", r.TimestampTime)
	}
	if r.Reason != "" {
		fmt.Fprintf(stdout, "Reason: %s\n", r.Reason)
	}
	if r.Location != "" {
		fmt.Fprintf(stdout, "Location: %s\n", r.Location)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(stdout, "  ERROR: %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(stdout, "  WARNING: %s\n", w)
	}
}
