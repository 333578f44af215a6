package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/juicy-forest/server/chat"
	"github.com/juicy-forest/server/gateway"
	"github.com/juicy-forest/server/pkg/config"
	"github.com/juicy-forest/server/pkg/logger"
	"github.com/juicy-forest/server/pkg/secrets"
	"github.com/juicy-forest/server/shared/observability"
)

func main() {
	cfg := config.New()

	log := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		JSON:      strings.EqualFold(cfg.Logging.Format, "json"),
		Output:    os.Stdout,
		AddSource: cfg.Server.Env != "production",
	})
	logger.SetGlobal(log)

	if err := secrets.Init(log); err != nil {
		log.Warn("secrets manager unavailable, using environment", "error", err.Error())
	}

	shutdownTracing := observability.SetupTracing("garden-chat", log)
	defer shutdownTracing()
	observability.SetupPrometheusMetrics(":9090", log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := chat.NewApp(cfg, log)
	if err != nil {
		log.LogError(err, "failed to start chat service")
		os.Exit(1)
	}

	gw, err := gateway.New(cfg, log)
	if err != nil {
		log.LogError(err, "failed to start gateway")
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- app.Run(ctx) }()
	go func() { errCh <- gw.Run(ctx) }()

	// A listen failure in either listener cancels the other; a signal
	// cancels both. Either way both goroutines report back before exit.
	var failed bool
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			log.LogError(err, "service exited")
			failed = true
			stop()
		}
	}
	if failed {
		os.Exit(1)
	}
}
