package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
	out    *Output
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "draftctl",
		Short: "CLI tool for the captain draft server",
		Long: `draftctl creates draft sessions, follows them live and reads archived results.

Live commands speak the websocket protocol: they join a session with a secret
and print every event the server pushes.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("server", cfg.ServerURL, "Server URL (env: DRAFTCTL_SERVER)")
	rootCmd.PersistentFlags().StringP("output", "o", cfg.Output, "Output format: text, json (env: DRAFTCTL_OUTPUT)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", cfg.Verbose, "Verbose output")

	v := newViper(rootCmd.PersistentFlags())
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg.load(v)
		client = NewClient(cfg.ServerURL)
		out = NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
		return nil
	}

	// Add subcommands
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newResultCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
