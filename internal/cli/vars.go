package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newVarCmd(cfg *Config) *cobra.Command {
	vars := &cobra.Command{
		Use:   "var",
		Short: "Manage variables in the platform variable store",
	}

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Fetch a variable's JSON value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			raw, err := c.GetVariable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(string(raw))
			return nil
		},
	}

	var overwrite bool
	set := &cobra.Command{
		Use:     "set <name> <json-value>",
		Short:   "Store a JSON value under a name",
		Example: `  mlil var set threshold 0.75`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := json.RawMessage(args[1])
			if !json.Valid(raw) {
				return fmt.Errorf("value is not valid JSON: %s", args[1])
			}
			c, err := cfg.client()
			if err != nil {
				return err
			}
			if err := c.SetVariable(cmd.Context(), args[0], raw, overwrite); err != nil {
				return err
			}
			fmt.Println("set", args[0])
			return nil
		},
	}
	set.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing variable of the same name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			out, err := c.ListVariables(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			if err := c.DeleteVariable(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		},
	}

	vars.AddCommand(get, set, list, del)
	return vars
}
