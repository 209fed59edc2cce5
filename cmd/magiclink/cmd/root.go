package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "magiclink",
	Short: "MagicLink is a passwordless sign-in demo service",
	Long: `A minimal passwordless ("magic link") authentication service. Users sign in
by approving a prompt delivered out-of-band; no passwords are stored or sent.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
