package cli

import (
	"github.com/spf13/cobra"

	"github.com/mlinsightlab/mlil/pkg/client"
)

func newPredictionsCmd(cfg *Config) *cobra.Command {
	preds := &cobra.Command{
		Use:   "predictions",
		Short: "Inspect stored model predictions",
	}

	get := &cobra.Command{
		Use:   "get <name/flavor/version>",
		Short: "Fetch recorded predictions for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := client.ParseModelKey(args[0])
			if err != nil {
				return err
			}
			c, err := cfg.client()
			if err != nil {
				return err
			}
			out, err := c.GetPredictions(cmd.Context(), key)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	models := &cobra.Command{
		Use:   "models",
		Short: "List models that have stored predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			out, err := c.ListPredictionModels(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	preds.AddCommand(get, models)
	return preds
}
