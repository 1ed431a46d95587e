package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kislikjeka/zapfeed/internal/app"
	"github.com/kislikjeka/zapfeed/pkg/config"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

const (
	flagVerbose = "verbose"
	flagOutput  = "output"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "zapctl",
	Short:         "Inspect the zap feed and move sats between LNbits wallets",
	Long:          `zapctl reads LNBITS_* and the other zapfeed environment variables, the same as the API server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP(flagVerbose, "v", false, "log to stderr")
	rootCmd.PersistentFlags().StringP(flagOutput, "o", "table", "output format: table or json")

	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(walletsCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(allowanceCmd)
	rootCmd.AddCommand(tokenCmd)
}

// setup loads configuration and wires the services for one command
func setup(ccmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Discard()
	if verbose, _ := ccmd.Flags().GetBool(flagVerbose); verbose {
		log = logger.New(cfg.Env, os.Stderr)
	}

	return app.New(commandContext(ccmd), cfg, log)
}

func commandContext(ccmd *cobra.Command) context.Context {
	if ctx := ccmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func wantJSON(ccmd *cobra.Command) bool {
	out, _ := ccmd.Flags().GetString(flagOutput)
	return out == "json"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
