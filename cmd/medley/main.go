package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medleyfm/medley/internal/config"
	"github.com/medleyfm/medley/internal/domain"
	"github.com/medleyfm/medley/internal/registry"
	"github.com/medleyfm/medley/internal/repository"
	"github.com/medleyfm/medley/internal/source/local"
	"github.com/medleyfm/medley/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}

	logger, err := config.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = config.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting medley")

	st, err := store.Open(cfg.Data.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	index, err := local.OpenIndex(cfg.Data.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to open media index: %w", err)
	}
	defer index.Close()

	localSource := local.NewSource(index, st, logger)
	reg, err := registry.New(st, localSource, cfg.HTTP.Timeout, logger)
	if err != nil {
		return fmt.Errorf("failed to build provider registry: %w", err)
	}
	repo := repository.New(reg, logger)

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address, logger)
	}

	for _, provider := range reg.Providers() {
		logger.Info("provider ready", "type", provider.Type, "id", provider.TypeID, "name", provider.Name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sub := repo.Albums(repository.DefaultAlbumsSorting).Subscribe(ctx)
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case status := <-sub.C:
			switch status.State {
			case domain.StateLoading:
				logger.Debug("loading albums")
			case domain.StateSuccess:
				fmt.Printf("%d albums across %d providers\n", len(status.Data), len(reg.Providers()))
				return nil
			case domain.StateError:
				return fmt.Errorf("failed to list albums: %w", status.Err)
			}
		}
	}
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", "address", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}
