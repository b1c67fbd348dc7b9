package main

import (
	"fmt"
	"log"
	"net/http"

	"cellvcs/internal/api"
	"cellvcs/internal/config"
	"cellvcs/internal/logging"
	"cellvcs/internal/middleware"
	"cellvcs/internal/vcs"
	"cellvcs/internal/workbook"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Production wiring of a real workbook store is out of scope; the HTTP
	// surface runs against an in-memory one.
	wb := workbook.NewMemStore()

	repo, err := vcs.Init(cfg.Repo.Root, wb, logger.Logger)
	if err != nil {
		logger.Fatal("failed to open repository", zap.Error(err))
	}
	defer repo.Close()

	handler := api.NewHandler(repo)

	// Set up router
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", healthCheck)

	// Core operations
	mux.HandleFunc("POST /api/stage", handler.Stage)
	mux.HandleFunc("POST /api/commit", handler.Commit)
	mux.HandleFunc("GET /api/status", handler.Status)
	mux.HandleFunc("GET /api/history", handler.History)
	mux.HandleFunc("POST /api/reset/hard", handler.HardReset)
	mux.HandleFunc("POST /api/reset/soft", handler.SoftReset)
	mux.HandleFunc("POST /api/revert", handler.Revert)
	mux.HandleFunc("POST /api/cherry-pick", handler.CherryPick)
	mux.HandleFunc("GET /api/preview", handler.PreviewRollback)

	// Apply middleware
	chained := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recover(logger),
	)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, chained); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy"}`))
}
