package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDataCmd(cfg *Config) *cobra.Command {
	data := &cobra.Command{
		Use:   "data",
		Short: "Manage files in the platform data store",
	}

	var overwrite bool
	upload := &cobra.Command{
		Use:     "upload <local-path> <remote-name>",
		Short:   "Upload a local file to the data store",
		Example: "  mlil data upload ./churn.csv datasets/churn.csv",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			if err := c.UploadFile(cmd.Context(), args[0], args[1], overwrite); err != nil {
				return err
			}
			fmt.Println("uploaded", args[1])
			return nil
		},
	}
	upload.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file of the same name")

	download := &cobra.Command{
		Use:   "download <remote-name> <local-path>",
		Short: "Download a file from the data store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			if err := c.DownloadFile(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("downloaded", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list [directory]",
		Short: "List files in the data store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			c, err := cfg.client()
			if err != nil {
				return err
			}
			out, err := c.ListData(cmd.Context(), dir)
			if err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	data.AddCommand(upload, download, list)
	return data
}
