package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"shiftboard/internal/bot"
	"shiftboard/internal/client"
	"shiftboard/internal/config"
	"shiftboard/internal/metrics"
	"shiftboard/internal/monitoring"
	"shiftboard/internal/repository"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}

	apiClient := client.NewAPIClient(cfg.Client.APIBaseURL, cfg.ClientTimeout())
	checks := []monitoring.Check{{Name: "api", Ping: apiClient.HealthCheck}}

	var states repository.StateRepository = repository.NewMemoryStateRepository(cfg.StateTTL())
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		primary := repository.NewRedisStateRepository(rdb, cfg.StateTTL())
		states = repository.NewFailoverStateRepository(primary, states, &logger)
		checks = append(checks, monitoring.Check{Name: "redis", Ping: primary.Ping})
	}

	b, err := bot.New(cfg, apiClient, states, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go monitoring.StartHealthServer(ctx, cfg.Monitoring.HealthCheckPort, &logger, checks...)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9091
		}
		metrics.Register()
		go monitoring.StartMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	b.StartReminders(ctx)

	logger.Info().Msg("Shift bot started")
	b.Start(ctx)
}
