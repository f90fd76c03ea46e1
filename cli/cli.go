// Package cli implements the esign command line.
package cli

import (
	"fmt"
	"io"
	"os"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// stdout receives command output.
var stdout io.Writer = os.Stdout

// Run executes the CLI with the given arguments.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	switch args[1] {
	case "serve":
		ServeCommand(args)
	case "sign":
		SignCommand(args)
	case "verify":
		VerifyCommand(args)
	case "certificate":
		CertificateCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[1])
		Usage()
		osExit(2)
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Fprintf(stdout, "esign - document signing service\n\n")
	fmt.Fprintf(stdout, "Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Fprintln(stdout, "Commands:")
	fmt.Fprintln(stdout, "  serve        Run the HTTP API")
	fmt.Fprintln(stdout, "  sign         Finalize and sign a PDF with a PKCS#12 bundle")
	fmt.Fprintln(stdout, "  verify       Check the last signature of a PDF")
	fmt.Fprintln(stdout, "  certificate  Render a completion certificate from a YAML summary")
	fmt.Fprintln(stdout, "  version      Show version information")
	fmt.Fprintln(stdout, "  help         Show this help message")
	fmt.Fprintln(stdout, "")
	fmt.Fprintf(stdout, "Use '%s <command> -h' for command-specific help\n", os.Args[0])
	fmt.Fprintln(stdout, "")
	fmt.Fprintln(stdout, "Examples:")
	fmt.Fprintf(stdout, "  %s serve -config esign.yaml\n", os.Args[0])
	fmt.Fprintf(stdout, "  %s sign -pfx signer.p12 input.pdf output.pdf\n", os.Args[0])
	fmt.Fprintf(stdout, "  %s verify -json output.pdf\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Fprintf(stdout, "esign version %s\n", Version)
	fmt.Fprintf(stdout, "Build time: %s\n", BuildTime)
}
