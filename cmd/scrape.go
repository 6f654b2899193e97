package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lkhoram/patrascan/models"
	"github.com/lkhoram/patrascan/pipeline"
	"github.com/lkhoram/patrascan/scraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract records from the portal and merge them into the local set",
	RunE:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		return fmt.Errorf("initialise scraper: %w", err)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	if err := s.Login(ctx); err != nil {
		return fmt.Errorf("portal login: %w", err)
	}

	slog.Info("starting extraction", slog.String("listing", cfg.ListingURL()))
	raw, err := s.ExtractPayload(ctx)
	if err != nil {
		return fmt.Errorf("extraction: %w", err)
	}

	payload := models.DecodePayload(raw)
	switch payload.Kind {
	case models.PayloadRecords:
		return mergeBatch(payload.Records)
	case models.PayloadError:
		fmt.Println(payload.Message)
		return nil
	default:
		if payload.Message == "" {
			fmt.Println("هیچ داده‌ای دریافت نشد.")
		} else {
			fmt.Println(payload.Message)
		}
		return nil
	}
}

func mergeBatch(records []*models.CustomerRecord) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	writer := pipeline.NewStoreWriter(db)
	p := pipeline.NewPipeline(writer)
	p.Start(1)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	if err := p.Process(records); err != nil {
		return fmt.Errorf("process batch: %w", err)
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("merge batch: %w", err)
	}

	if added := writer.Added(); added > 0 {
		fmt.Printf("✅ %d مورد جدید ثبت شد.\n", added)
	} else {
		fmt.Println("هیچ مورد جدیدی برای ثبت وجود نداشت.")
	}
	slog.Info("merge complete",
		slog.Int("batch", len(records)),
		slog.Int("added", writer.Added()),
		slog.Int("total", len(writer.Merged())),
	)
	return nil
}
