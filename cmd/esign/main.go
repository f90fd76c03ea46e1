// Command esign runs the document signing service and its tooling.
//
// Usage:
//
//	esign <command> [options] <args>
//
// Commands:
//
//	serve        Run the HTTP API
//	sign         Finalize and sign a PDF with a PKCS#12 bundle
//	verify       Check the last signature of a PDF
//	certificate  Render a completion certificate from a YAML summary
//	version      Show version information
//	help         Show help message
//
// A .env file in the working directory, when present, is loaded into the
// environment before the command runs.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/georgepadayatti/esign/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/esign
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Missing .env is fine; real environment values are never overridden.
	_ = godotenv.Load()

	cli.Version = version
	cli.BuildTime = buildTime

	cli.Run(os.Args)
}
