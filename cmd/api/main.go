package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"shiftboard/internal/api"
	"shiftboard/internal/audit"
	"shiftboard/internal/config"
	"shiftboard/internal/database"
	"shiftboard/internal/events"
	"shiftboard/internal/google"
	"shiftboard/internal/metrics"
	"shiftboard/internal/monitoring"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus(&logger)

	exporter := audit.NewService(db, nil, cfg.Export.Dir, &logger)
	if cfg.Export.Enabled {
		go exporter.Start(ctx)
	}

	if cfg.Sheets.Enabled {
		sheets, err := google.NewSheetsService(ctx, cfg.Sheets, db, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("google sheets disabled")
		} else {
			bus.SubscribeAll(sheets.HandleEvent)
			go sheets.Start(ctx)
		}
	}

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup, cfg.BackupInterval(), &logger)
		go backups.Start(ctx)
	}

	dbCheck := monitoring.Check{Name: "db", Ping: db.PingContext}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8081
	}
	go monitoring.StartHealthServer(ctx, cfg.Monitoring.HealthCheckPort, &logger, dbCheck)

	if cfg.Monitoring.GRPCHealthPort != 0 {
		go monitoring.NewGRPCHealth(dbCheck).Serve(ctx, cfg.Monitoring.GRPCHealthPort, 10*time.Second, &logger)
	}

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go monitoring.StartMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(cfg, db, &logger, api.WithExporter(exporter), api.WithEventBus(bus))
	logger.Info().Str("addr", cfg.Server.Address).Msg("Shift API started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
}
