// fuelsyncd is the FuelSync API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/admin"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/blob"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/credit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/expenses"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/handover"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/logging"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/metrics"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/ocr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/quota"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/readings"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/reports"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/server"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/settlement"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/shift"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/store"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/tank"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/transactions"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/uploads"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config/base.yaml", "path to the YAML configuration file")
	logLevel := flag.String("log-level", "info", "zerolog level")
	flag.Parse()

	logger := logging.Setup("fuelsyncd", version, *logLevel)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.New(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer db.Close()

	clk := clock.System{}
	m := metrics.New()
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	authz := auth.NewResolver(db)

	quotas := quota.NewEngine(db, clk)
	adminEng := admin.NewEngine(db, authz, quotas, tokens, clk)
	readingEng := readings.NewEngine(db, authz, quotas, clk)
	tankEng := tank.NewEngine(db, authz, clk)
	handoverEng := handover.NewEngine(db, authz, clk)
	shiftEng := shift.NewEngine(db, authz, handoverEng, clk)
	settlementEng := settlement.NewEngine(db, authz, clk)
	transactionEng := transactions.NewEngine(db, authz, clk)
	creditEng := credit.NewEngine(db, authz, quotas, clk)
	expenseEng := expenses.NewEngine(db, authz, quotas, clk)
	reportEng := reports.NewEngine(db, authz, quotas, clk)

	var blobs blob.Store = blob.NullStore{}
	if cfg.Blob.Enabled {
		blobs = blob.NewHTTPStore(cfg.Blob.BaseURL, cfg.Blob.APIKey, nil)
	}
	var texts uploads.Texts = ocr.Disabled{}
	if cfg.OCR.Enabled {
		texts = ocr.Poller{
			Extractor:   ocr.NewClient(cfg.OCR.BaseURL, cfg.OCR.APIKey, nil),
			Interval:    time.Duration(cfg.OCR.PollIntervalSeconds) * time.Second,
			MaxAttempts: cfg.OCR.MaxPollAttempts,
		}
	}
	uploadEng := uploads.NewEngine(db, authz, blobs, texts, readingEng, clk, logger)

	srv := server.New(server.Deps{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Tokens:  tokens,
		Users:   db,
		Clock:   clk,

		Admin:        adminEng,
		Readings:     readingEng,
		Tanks:        tankEng,
		Shifts:       shiftEng,
		Handovers:    handoverEng,
		Settlements:  settlementEng,
		Transactions: transactionEng,
		Credit:       creditEng,
		Expenses:     expenseEng,
		Uploads:      uploadEng,
		Reports:      reportEng,
	})

	api := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Service.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Service.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Service.WriteTimeoutSeconds) * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Service.Port).Msg("api server listening")
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api server failed")
		}
	}()

	var metricsSrv *http.Server
	if cfg.Service.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Service.MetricsPort),
			Handler: mux,
		}
		go func() {
			logger.Info().Int("port", cfg.Service.MetricsPort).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api shutdown")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics shutdown")
		}
	}
	logger.Info().Msg("stopped")
}
