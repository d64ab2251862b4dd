package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/job"
	"github.com/sells-group/leadgen-cli/internal/model"
)

var (
	genQueries      []string
	genLimit        int
	genVerify       bool
	genDrafts       bool
	genAdvanced     bool
	genVerifiedOnly bool
	genProviders    []string
	genCampaignID   string
	genOutput       string
)

var generateCmd = &cobra.Command{
	Use:   "generate <query>",
	Short: "Generate leads for a search query",
	Long:  `Runs a full lead generation job: searches the configured directories, dedupes across providers, optionally verifies emails and drafts outreach, and writes the result to a file. Queries take the form "keyword in location".`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.GenerationRequest{
			Query:              args[0],
			Queries:            genQueries,
			Limit:              genLimit,
			VerifyEmails:       genVerify,
			GenerateEmails:     genDrafts,
			AdvancedScraping:   genAdvanced,
			ExportVerifiedOnly: genVerifiedOnly,
			Providers:          genProviders,
			CampaignSync:       genCampaignID != "",
			CampaignID:         genCampaignID,
		}

		id, err := env.Orchestrator.Submit(req)
		if err != nil {
			return err
		}
		zap.L().Info("job submitted", zap.String("job_id", id))

		snap, err := waitForJob(ctx, env.Orchestrator, id)
		if err != nil {
			return err
		}
		if snap.Status == job.StatusError {
			return eris.Errorf("job failed: %s", snap.Error)
		}

		leads, err := env.Orchestrator.GetResultExport(id)
		if err != nil {
			return err
		}

		out := genOutput
		if out == "" {
			out = filepath.Join(cfg.Export.Dir, fmt.Sprintf("leads_%s.csv", time.Now().Format("20060102_150405")))
		}
		if err := export.WriteFile(out, leads); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%s\n%d leads written to %s\n", snap.Message, len(leads), out)
		return nil
	},
}

// waitForJob polls until the job reaches a terminal state. Ctrl-C cancels
// the job before returning.
func waitForJob(ctx context.Context, orch *job.Orchestrator, id string) (job.Snapshot, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastProgress := -1
	for {
		select {
		case <-ctx.Done():
			if err := orch.Cancel(id); err == nil {
				zap.L().Info("job cancelled", zap.String("job_id", id))
			}
			return job.Snapshot{}, ctx.Err()
		case <-ticker.C:
			snap, err := orch.GetStatus(id)
			if err != nil {
				return job.Snapshot{}, err
			}
			if snap.Progress != lastProgress {
				lastProgress = snap.Progress
				fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", snap.Progress, snap.Message)
			}
			if snap.Status.Terminal() {
				return snap, nil
			}
		}
	}
}

func init() {
	generateCmd.Flags().StringSliceVar(&genQueries, "also", nil, "additional queries to aggregate with the primary one")
	generateCmd.Flags().IntVar(&genLimit, "limit", 0, "max leads per query (default from config)")
	generateCmd.Flags().BoolVar(&genVerify, "verify", false, "verify emails via MailTester")
	generateCmd.Flags().BoolVar(&genDrafts, "drafts", false, "generate outreach email drafts")
	generateCmd.Flags().BoolVar(&genAdvanced, "advanced-scraping", false, "scrape lead websites for missing emails")
	generateCmd.Flags().BoolVar(&genVerifiedOnly, "verified-only", false, "keep only leads whose email verified ok")
	generateCmd.Flags().StringSliceVar(&genProviders, "providers", nil, "restrict search to these providers")
	generateCmd.Flags().StringVar(&genCampaignID, "campaign", "", "sync resulting leads into this Instantly campaign")
	generateCmd.Flags().StringVar(&genOutput, "output", "", "output file (.csv or .xlsx)")
	rootCmd.AddCommand(generateCmd)
}
