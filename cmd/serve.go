package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fintel-group/report-extract/internal/model"
	"github.com/fintel-group/report-extract/internal/report"
	"github.com/fintel-group/report-extract/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report job API",
	Long:  "Accepts parsed report submissions, processes them in the background and serves status and results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}

		proc := report.NewProcessor(st, eng, cfg.Extract.Entities, cfg.Server.Workers, 0)
		proc.Start(ctx)
		defer proc.Stop()

		r := newRouter(st, proc)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
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

func newRouter(st store.Store, proc *report.Processor) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/reports", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			FileName string           `json:"file_name"`
			Units    []model.TextUnit `json:"units"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body.Units) == 0 {
			writeError(w, http.StatusBadRequest, "units is required")
			return
		}
		if body.FileName == "" {
			body.FileName = "report-" + time.Now().UTC().Format("20060102T150405")
		}

		rep, err := proc.Submit(req.Context(), body.FileName, body.Units)
		if err != nil {
			zap.L().Error("submit report failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to queue report")
			return
		}
		writeJSON(w, http.StatusAccepted, rep)
	})

	r.Get("/api/reports", func(w http.ResponseWriter, req *http.Request) {
		filter := store.ReportFilter{Limit: 50}
		if s := req.URL.Query().Get("status"); s != "" {
			filter.Status = model.ReportStatus(s)
		}
		reports, err := st.ListReports(req.Context(), filter)
		if err != nil {
			zap.L().Error("list reports failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list reports")
			return
		}
		if reports == nil {
			reports = []model.Report{}
		}
		writeJSON(w, http.StatusOK, reports)
	})

	r.Get("/api/reports/{id}", func(w http.ResponseWriter, req *http.Request) {
		rep, err := st.GetReport(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			if store.IsNotFound(err) {
				writeError(w, http.StatusNotFound, "report not found")
				return
			}
			zap.L().Error("get report failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load report")
			return
		}
		writeJSON(w, http.StatusOK, rep)
	})

	r.Get("/api/reports/{id}/keywords", func(w http.ResponseWriter, req *http.Request) {
		rep, err := st.GetReport(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			if store.IsNotFound(err) {
				writeError(w, http.StatusNotFound, "report not found")
				return
			}
			zap.L().Error("get report failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load report")
			return
		}
		if rep.Status != model.ReportStatusCompleted {
			writeJSON(w, http.StatusOK, map[string]any{
				"report_id": rep.ID,
				"status":    rep.Status,
			})
			return
		}

		final, err := report.UnmarshalResult(rep.Result)
		if err != nil {
			zap.L().Error("decode result failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "stored result is corrupt")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"report_id": rep.ID,
			"status":    rep.Status,
			"keywords":  report.BuildKeywords(final),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
