package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/job"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/planner"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead generation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newMux(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// jobRequest is the submission payload for POST /jobs.
type jobRequest struct {
	Query              string   `json:"query"`
	Queries            []string `json:"queries,omitempty"`
	Limit              int      `json:"limit,omitempty"`
	VerifyEmails       bool     `json:"verify_emails,omitempty"`
	GenerateEmails     bool     `json:"generate_emails,omitempty"`
	AdvancedScraping   bool     `json:"advanced_scraping,omitempty"`
	ExportVerifiedOnly bool     `json:"export_verified_only,omitempty"`
	Providers          []string `json:"providers,omitempty"`
	CampaignID         string   `json:"campaign_id,omitempty"`
}

func newMux(env *jobEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		var req jobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		id, err := env.Orchestrator.Submit(model.GenerationRequest{
			Query:              req.Query,
			Queries:            req.Queries,
			Limit:              req.Limit,
			VerifyEmails:       req.VerifyEmails,
			GenerateEmails:     req.GenerateEmails,
			AdvancedScraping:   req.AdvancedScraping,
			ExportVerifiedOnly: req.ExportVerifiedOnly,
			Providers:          req.Providers,
			CampaignSync:       req.CampaignID != "",
			CampaignID:         req.CampaignID,
		})
		if err != nil {
			switch {
			case errors.Is(err, planner.ErrInvalidQuery), errors.Is(err, model.ErrInvalidRequest):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, job.ErrQueueFull):
				writeError(w, http.StatusServiceUnavailable, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
	})

	mux.HandleFunc("GET /jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"jobs": env.Orchestrator.List()})
	})

	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		snap, err := env.Orchestrator.GetStatus(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	mux.HandleFunc("POST /jobs/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := env.Orchestrator.Cancel(id); err != nil {
			if errors.Is(err, job.ErrJobNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
			} else {
				writeError(w, http.StatusConflict, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"job_id": id, "status": "cancelling"})
	})

	mux.HandleFunc("GET /jobs/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		leads, err := env.Orchestrator.GetResultExport(id)
		if err != nil {
			switch {
			case errors.Is(err, job.ErrJobNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, job.ErrJobNotCompleted):
				writeError(w, http.StatusConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		format, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		switch format {
		case export.FormatXLSX:
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leads_%s.xlsx", id))
			err = export.WriteXLSX(w, leads)
		default:
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leads_%s.csv", id))
			err = export.WriteCSV(w, leads)
		}
		if err != nil {
			zap.L().Error("export write failed", zap.String("job_id", id), zap.Error(err))
		}
	})

	mux.HandleFunc("GET /campaigns", func(w http.ResponseWriter, r *http.Request) {
		if env.Instantly == nil {
			writeError(w, http.StatusServiceUnavailable, "campaign sync is not configured")
			return
		}
		campaigns, err := env.Instantly.ListCampaigns(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
	})

	mux.HandleFunc("GET /history", func(w http.ResponseWriter, r *http.Request) {
		if env.History == nil {
			writeError(w, http.StatusServiceUnavailable, "history is not configured")
			return
		}
		entries, err := env.History.List(r.Context(), 50)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"searches": entries})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
