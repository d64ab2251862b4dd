package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/pkg/instantly"
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List Instantly campaigns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Instantly.Key == "" {
			return eris.New("LEADGEN_INSTANTLY_KEY is not set")
		}
		opts := []instantly.Option{}
		if cfg.Instantly.BaseURL != "" {
			opts = append(opts, instantly.WithBaseURL(cfg.Instantly.BaseURL))
		}
		client := instantly.NewClient(cfg.Instantly.Key, opts...)

		campaigns, err := client.ListCampaigns(cmd.Context())
		if err != nil {
			return err
		}
		if len(campaigns) == 0 {
			fmt.Fprintln(os.Stderr, "No campaigns found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, c := range campaigns {
			fmt.Fprintf(w, "%s\t%s\n", c.ID, c.Name)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(campaignsCmd)
}
