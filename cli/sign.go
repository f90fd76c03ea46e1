package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/georgepadayatti/esign/config"
	"github.com/georgepadayatti/esign/keys"
	"github.com/georgepadayatti/esign/sign/digest"
	"github.com/georgepadayatti/esign/sign/finalizer"
	"github.com/georgepadayatti/esign/sign/signers"
	"github.com/georgepadayatti/esign/sign/timestamps"
)

// SignOptions contains options for the sign command.
type SignOptions struct {
	PFXFile     string
	Passphrase  string
	Name        string
	Reason      string
	Location    string
	Contact     string
	FieldName   string
	TSA         string
	TSATimeout  time.Duration
	NoTimestamp bool
}

// SignCommand implements the 'sign' command.
func SignCommand(args []string) {
	signFlags := flag.NewFlagSet("sign", flag.ExitOnError)

	var opts SignOptions

	signFlags.StringVar(&opts.PFXFile, "pfx", "", "PKCS#12 bundle holding the signing identity")
	signFlags.StringVar(&opts.Passphrase, "passphrase", os.Getenv(config.EnvPassphrase), "Passphrase of the bundle (default from PASS_PHRASE)")
	signFlags.StringVar(&opts.Name, "name", "esign", "Signature /Name entry")
	signFlags.StringVar(&opts.Reason, "reason", "", "Reason for signing")
	signFlags.StringVar(&opts.Location, "location", "n/a", "Signature /Location entry")
	signFlags.StringVar(&opts.Contact, "contact", "", "Contact information")
	signFlags.StringVar(&opts.FieldName, "field", finalizer.DefaultFieldName, "Name of the signature field")
	signFlags.StringVar(&opts.TSA, "tsa", "", "URL of an RFC 3161 Time-Stamp Authority")
	signFlags.DurationVar(&opts.TSATimeout, "tsa-timeout", 10*time.Second, "Timeout for timestamp requests")
	signFlags.BoolVar(&opts.NoTimestamp, "no-timestamp", false, "Skip the timestamp even when -tsa is set")

	signFlags.Usage = func() {
		fmt.Printf("Usage: %s sign [options] <input.pdf> <output.pdf>\n\n", os.Args[0])
		fmt.Println("Flatten the form of a PDF and sign it with a PKCS#12 bundle.")
		fmt.Println("")
		fmt.Println("Options:")
		signFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s sign -pfx signer.p12 input.pdf output.pdf\n", os.Args[0])
		fmt.Printf("  %s sign -pfx signer.p12 -reason \"Approved\" -tsa http://timestamp.example.com input.pdf output.pdf\n", os.Args[0])
	}

	if err := signFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(signFlags.Args()) < 2 || opts.PFXFile == "" {
		signFlags.Usage()
		osExit(1)
		return
	}

	hash, err := signFile(signFlags.Arg(0), signFlags.Arg(1), &opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
		return
	}

	fmt.Fprintf(stdout, "Successfully signed PDF: %s\n", signFlags.Arg(1))
	fmt.Fprintf(stdout, "SHA-256: %s\n", hash)
}

// signFile finalizes and signs inputPath into outputPath and returns the
// digest of the signed file.
func signFile(inputPath, outputPath string, opts *SignOptions) (string, error) {
	bundle, err := keys.BundleFromFile(opts.PFXFile, opts.Passphrase)
	if err != nil {
		return "", fmt.Errorf("failed to load bundle: %w", err)
	}

	input, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}

	finalized, err := finalizer.New(nil, nil).Finalize(input, finalizer.Options{
		Reason:      opts.Reason,
		Location:    opts.Location,
		Name:        opts.Name,
		ContactInfo: opts.Contact,
		FieldName:   opts.FieldName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to prepare PDF: %w", err)
	}

	engine := signers.NewEngine(nil, nil)
	if !opts.NoTimestamp && opts.TSA != "" {
		engine.Timestamper = timestamps.NewHTTPTimestamper(opts.TSA, opts.TSATimeout)
	}
	signed, err := engine.Sign(finalized, bundle)
	if err != nil {
		return "", fmt.Errorf("failed to sign PDF: %w", err)
	}

	if err := os.WriteFile(outputPath, signed, 0644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return digest.Hex(signed), nil
}
