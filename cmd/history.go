package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past lead searches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, err := history.Open(ctx, history.Config{
			Driver:      cfg.History.Driver,
			Path:        cfg.History.Path,
			DatabaseURL: cfg.History.DatabaseURL,
		})
		if err != nil {
			return err
		}
		if store == nil {
			return eris.New("history is disabled (no driver configured)")
		}
		defer store.Close() //nolint:errcheck

		entries, err := store.List(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No searches recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tQUERY\tQUERIES\tLEADS")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
				e.Query, e.QueryCount, e.LeadCount,
			)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "max entries to show")
	rootCmd.AddCommand(historyCmd)
}
