// Package cli implements the mlil command line interface over the SDK
// client in pkg/client.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mlinsightlab/mlil/pkg/client"
)

// Config carries connection settings shared by every subcommand.
type Config struct {
	URL      string
	Username string
	Key      string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// NewRootCmd constructs the mlil command tree.
func NewRootCmd() *cobra.Command {
	cfg := &Config{}
	root := &cobra.Command{
		Use:           "mlil",
		Short:         "Client for the ML Insight Lab platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfg.URL, "url", envOr("MLIL_URL", "http://localhost:8080"), "Platform base URL (defaults MLIL_URL)")
	root.PersistentFlags().StringVar(&cfg.Username, "username", os.Getenv("MLIL_USERNAME"), "Platform username (defaults MLIL_USERNAME)")
	root.PersistentFlags().StringVar(&cfg.Key, "key", os.Getenv("MLIL_KEY"), "Platform API key (defaults MLIL_KEY)")

	root.AddCommand(
		newModelsCmd(cfg),
		newDataCmd(cfg),
		newVarCmd(cfg),
		newPredictionsCmd(cfg),
		newUsersCmd(cfg),
		newStatusCmd(cfg),
	)
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *Config) client() (*client.Client, error) {
	return client.New(c.URL, c.Username, c.Key)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
