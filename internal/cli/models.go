package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mlinsightlab/mlil/pkg/client"
	"github.com/mlinsightlab/mlil/pkg/types"
)

func newModelsCmd(cfg *Config) *cobra.Command {
	models := &cobra.Command{
		Use:   "models",
		Short: "Manage model deployments",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tracked deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			out, err := c.ListDeployments(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var modelURI string
	var useGPU bool
	deploy := &cobra.Command{
		Use:     "deploy <name/flavor/version>",
		Short:   "Deploy a model serving container (admin)",
		Example: "  mlil models deploy churn-predictor/pyfunc/3 --uri models:/churn-predictor/3",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := client.ParseModelKey(args[0])
			if err != nil {
				return err
			}
			c, err := cfg.client()
			if err != nil {
				return err
			}
			dep, err := c.DeployModel(cmd.Context(), types.DeploySpec{
				ModelKey: key,
				ModelURI: modelURI,
				UseGPU:   useGPU,
			})
			if err != nil {
				return err
			}
			return printJSON(dep)
		},
	}
	deploy.Flags().StringVar(&modelURI, "uri", "", "MLflow model URI (required)")
	deploy.Flags().BoolVar(&useGPU, "gpu", false, "Grant the container GPU access")
	_ = deploy.MarkFlagRequired("uri")

	remove := &cobra.Command{
		Use:   "remove <name/flavor/version>",
		Short: "Stop and forget a deployment (admin)",
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
			if err := c.RemoveModel(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Println("removed", key.String())
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status <name/flavor/version>",
		Short: "Show a deployment's container state",
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
			state, err := c.ModelStatus(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Println(state)
			return nil
		},
	}

	logs := &cobra.Command{
		Use:   "logs <name/flavor/version>",
		Short: "Show a deployment's container logs",
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
			out, err := c.ModelLogs(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}

	invoke := &cobra.Command{
		Use:     "invoke <name/flavor/version> [json]",
		Short:   "Send a JSON payload to a deployed model ('-' or no arg reads stdin)",
		Example: `  mlil models invoke churn-predictor/pyfunc/3 '{"inputs": [[1, 2, 3]]}'`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := client.ParseModelKey(args[0])
			if err != nil {
				return err
			}
			var payload []byte
			if len(args) == 2 && args[1] != "-" {
				payload = []byte(args[1])
			} else {
				payload, err = io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
			}
			c, err := cfg.client()
			if err != nil {
				return err
			}
			out, err := c.Invoke(cmd.Context(), key, json.RawMessage(payload))
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	models.AddCommand(list, deploy, remove, status, logs, invoke)
	return models
}

func newStatusCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's deployment status report",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			out, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}
