// Command econsim serves economy models over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/KhuramC/EconomySim-sub000/internal/api"
	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/engine"
	"github.com/KhuramC/EconomySim-sub000/internal/entropy"
	"github.com/KhuramC/EconomySim-sub000/internal/persistence"
	"github.com/KhuramC/EconomySim-sub000/internal/registry"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("ECONSIM_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	port := envIntOrDefault("ECONSIM_PORT", 8080)
	dbPath := os.Getenv("ECONSIM_DB")
	adminKey := os.Getenv("ECONSIM_ADMIN_KEY")

	// ── Archive ───────────────────────────────────────────────────────
	var db *persistence.DB
	if dbPath != "" {
		os.MkdirAll(filepath.Dir(dbPath), 0755)
		var err error
		db, err = persistence.Open(dbPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("archive opened", "path", dbPath)
	} else {
		slog.Warn("ECONSIM_DB not set, snapshot endpoints disabled")
	}

	// ── Seeds ─────────────────────────────────────────────────────────
	ent := entropy.NewClient(os.Getenv("RANDOM_ORG_API_KEY"))
	if ent.Enabled() {
		slog.Info("random.org seeding enabled")
	} else {
		slog.Info("RANDOM_ORG_API_KEY not set, seeding from crypto/rand")
	}

	if adminKey == "" {
		slog.Warn("ECONSIM_ADMIN_KEY not set, admin endpoints will be disabled")
	}

	models := registry.New()

	// ── Preset model ──────────────────────────────────────────────────
	if path := os.Getenv("ECONSIM_CONFIG"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			slog.Error("failed to load preset config", "error", err)
			os.Exit(1)
		}
		id, err := models.Create(cfg, ent.Seed(context.Background()))
		if err != nil {
			slog.Error("failed to create preset model", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Preset model: %s\n", id)
	}

	srv := api.NewServer(models, db, ent, port, adminKey)
	srv.Start()
	defer srv.Close()

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", port)
	fmt.Println("Serving... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	// Final archive of every live model.
	if db != nil {
		for _, id := range models.List() {
			err := models.Export(id, func(m *engine.Model) error {
				return db.SaveModel(id.String(), m)
			})
			if err != nil {
				slog.Error("final save failed", "model", id, "error", err)
			}
		}
	}
	fmt.Println("Server stopped.")
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
