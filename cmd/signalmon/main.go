package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"signalmon/config"
	"signalmon/internal/bus"
	"signalmon/internal/gateway"
	"signalmon/internal/logger"
	"signalmon/internal/marketdata/quote"
	"signalmon/internal/metrics"
	"signalmon/internal/monitor"
	"signalmon/internal/notification"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[signalmon] WARNING: .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[signalmon] %v", err)
	}
	logger.Init("signalmon", logger.ParseLevel(cfg.LogLevel))

	source, err := quote.New(cfg.QuoteSource())
	if err != nil {
		log.Fatalf("[signalmon] price source: %v", err)
	}

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Setup metrics & health ----
	prom := metrics.NewMetrics(prometheus.DefaultRegisterer)
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, prometheus.DefaultGatherer)

	if s, ok := source.(*quote.Stream); ok {
		s.OnReconnect = prom.StreamReconnects.Inc
		go s.Run(ctx)
	}

	// ---- Live feed ----
	hub := gateway.NewHub(cfg.ReplaySize)
	hub.OnClientCount = func(n int) { prom.WSClients.Set(float64(n)) }

	// ---- Sinks ----
	sinks, err := openSinks(ctx, cfg, prom)
	if err != nil {
		log.Fatalf("[signalmon] %v", err)
	}
	fanout := bus.New(sinks.named...)
	fanout.Add(hub)
	fanout.OnWrite = func(sink string, d time.Duration, err error) {
		prom.SinkWriteDur.WithLabelValues(sink).Observe(d.Seconds())
		if err != nil {
			prom.SinkWriteFailures.WithLabelValues(sink).Inc()
		}
		health.SetSinkOK(sink, err == nil)
	}
	log.Printf("[signalmon] sinks: %v", fanout.Names())

	metricsSrv.Handle("/ws", http.HandlerFunc(hub.ServeWS))
	if sinks.recent != nil {
		metricsSrv.Handle("/api/signals", gateway.SignalsHandler(sinks.recent))
	}
	if sinks.latest != nil {
		metricsSrv.Handle("/api/signals/latest", gateway.LatestHandler(sinks.latest))
	}
	metricsSrv.Start()
	health.StartLivenessChecker(ctx, sinks.redisClient, sinks.sqlDB, 10*time.Second)

	svc, err := monitor.New(monitor.Options{
		Asset:           cfg.Asset,
		Interval:        cfg.Interval,
		HistoryCapacity: cfg.HistoryCapacity,
		Thresholds:      cfg.Thresholds,
		Source:          source,
		Sink:            fanout,
		Console:         consoleFor(cfg),
		Notifier:        notifierFor(cfg),
		Metrics:         prom,
		Health:          health,
	})
	if err != nil {
		log.Fatalf("[signalmon] %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Run(ctx)
	}()

	log.Printf("[signalmon] monitoring %s via %s every %s (metrics on %s). Press Ctrl+C to stop.",
		cfg.Asset, source.Name(), cfg.Interval, cfg.MetricsAddr)

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[signalmon] shutdown signal received, cleaning up...")
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Stop(shutdownCtx); err != nil {
		log.Printf("[signalmon] metrics server stop: %v", err)
	}
	if err := fanout.Close(); err != nil {
		log.Printf("[signalmon] closing sinks: %v", err)
	}
	sinks.close()

	slog.Info("shutdown complete")
}

func consoleFor(cfg *config.Config) *notification.Console {
	if !cfg.Console {
		return nil
	}
	return notification.NewConsole(os.Stdout)
}

func notifierFor(cfg *config.Config) notification.Notifier {
	var multi notification.Multi
	if cfg.Notify.Log {
		multi = append(multi, notification.NewLogNotifier())
	}
	if cfg.Notify.TelegramToken != "" {
		multi = append(multi, notification.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.WebhookURL != "" {
		multi = append(multi, notification.NewWebhookNotifier(cfg.Notify.WebhookURL))
	}
	if len(multi) == 0 {
		return nil
	}
	return multi
}
