// Package main is the entry point for the kdf-params-cli application.
// It registers the SP 800-108 counter KDF parameter commands and executes the command-line interface.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/MGTheTrain/crypto-vault-kdf/cmd/kdf-params-cli/internal/commands"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "kdf-params-cli",
		Short: "SP 800-108 counter KDF mechanism parameter tool",
		Long: `kdf-params-cli builds and inspects the native CK_SP800_108_KDF_PARAMS
structures passed to PKCS#11 tokens for counter-mode key derivation.

Configuration is read from the YAML file named by KDF_CONFIG_FILE. The following
environment variables override the file:
- KDF_LAYOUT (native, api40, api41, api80, api81)
- KDF_POINTER_SIZE (4 or 8)
- KDF_ALLOCATOR (auto, cgo, mmap)
- LOG_LEVEL`,
	}

	if err := commands.InitKdfCommands(rootCmd); err != nil {
		return fmt.Errorf("failed to initialize commands: %w", err)
	}

	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}

	return nil
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stderr)
}
