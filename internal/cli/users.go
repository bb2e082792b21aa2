package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsersCmd(cfg *Config) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage platform accounts (admin)",
	}

	var role string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an account and print its API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			out, err := c.CreateUser(cmd.Context(), args[0], role)
			if err != nil {
				return err
			}
			// The key is shown exactly once.
			return printJSON(out)
		},
	}
	create.Flags().StringVar(&role, "role", "user", "Account role: admin|user")

	del := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			if err := c.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		},
	}

	users.AddCommand(create, del)
	return users
}
