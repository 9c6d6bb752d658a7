package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"lighter_go/internal/app"
	"lighter_go/internal/attribution"
	"lighter_go/internal/book"
	"lighter_go/internal/domain"
	"lighter_go/internal/engine"
	"lighter_go/internal/event"
	"lighter_go/internal/infra/lighter"
	"lighter_go/internal/infra/notify"
	"lighter_go/internal/service"
	"lighter_go/pkg/quant"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Background icon prefetch
	go bootstrap.PrefetchIcons(ctx)

	// 5. Venue REST client (nonce cache + account index source)
	client := lighter.NewClient(cfg.API.Lighter.RestURL, cfg.API.Lighter.APIKeyIndex)
	if cfg.API.Lighter.AccountIndex != 0 {
		client.SetAccountIndex(cfg.API.Lighter.AccountIndex)
	}

	// 6. Report sinks: history store plus webhook delivery
	notifier := notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.CostThreshold, bootstrap.Icons)
	emit := func(report *domain.ExecutionReport) {
		if err := bootstrap.Storage.SaveReport(report); err != nil {
			slog.Error("Failed to save report", slog.String("id", report.ID), slog.Any("error", err))
		}
		if err := notifier.Notify(report); err != nil {
			if domain.IsRetriable(err) {
				slog.Warn("Report delivery failed, transient", slog.String("id", report.ID), slog.Any("error", err))
			} else {
				slog.Error("Report delivery failed", slog.String("id", report.ID), slog.Any("error", err))
			}
		}
	}

	// 7. Core: registry, applier, attribution and the sequencer hotpath
	registry := book.NewRegistry()
	applier := book.NewApplier(registry, slog.Default())
	attributor := attribution.NewAttributor(attribution.Config{
		CaptureTTL:  time.Duration(cfg.Attribution.CaptureTTLMS) * time.Millisecond,
		MergeWindow: time.Duration(cfg.Attribution.MergeWindowMS) * time.Millisecond,
		Symbols:     cfg.API.Lighter.Markets,
	}, client, emit, slog.Default())

	event.Warmup()
	seq := engine.NewSequencer(1024, registry, applier, attributor)
	go seq.Run(ctx)
	slog.InfoContext(ctx, "✅ Sequencer (Hotpath) started")

	// 8. Stream worker over every configured market
	marketIDs := make([]string, 0, len(cfg.API.Lighter.Markets))
	for id := range cfg.API.Lighter.Markets {
		marketIDs = append(marketIDs, id)
	}
	sort.Strings(marketIDs)

	nextSeq := uint64(0)
	worker := lighter.NewWorker(cfg.API.Lighter.WSURL, marketIDs, seq.Inbox(), &nextSeq)
	if err := worker.Connect(ctx); err != nil {
		slog.Error("Failed to connect Lighter stream", slog.Any("error", err))
	}
	defer worker.Disconnect()
	slog.InfoContext(ctx, "✅ Stream worker started", slog.Int("markets", len(marketIDs)))

	// 9. Operator signal endpoint: the UI-side detector POSTs here when
	// the operator submits or switches markets.
	go serveSignals(ctx, seq.Signals(), client)

	// 10. Spread monitor (optional read-side)
	if cfg.Monitor.Enabled {
		monitor := service.NewSpreadMonitor(
			time.Duration(cfg.Monitor.IntervalSec)*time.Second,
			cfg.Monitor.USDSizes,
			cfg.API.Lighter.Markets,
			seq.CaptureBooks,
			slog.Default(),
		)
		go monitor.Run(ctx)
		slog.InfoContext(ctx, "✅ Spread monitor started", slog.Int("interval_sec", cfg.Monitor.IntervalSec))
	}

	slog.InfoContext(ctx, "✨ Lighter Go fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}

// serveSignals exposes the operator action endpoints on localhost. The
// browser-side detector is a separate component; it only needs to hit
// these when something happens, and it draws transaction nonces from
// the same server.
func serveSignals(ctx context.Context, signals chan<- event.Event, client *lighter.Client) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /nonce", client.NonceHandler())
	mux.HandleFunc("POST /signal/tx-result", client.TxResultHandler())
	mux.HandleFunc("POST /signal/action", func(w http.ResponseWriter, r *http.Request) {
		ev := &event.OrderActionEvent{
			BaseEvent: event.BaseEvent{Ts: quant.TimeStamp(time.Now().UnixMicro())},
		}
		select {
		case signals <- ev:
			w.WriteHeader(http.StatusAccepted)
		default:
			http.Error(w, "signal queue full", http.StatusServiceUnavailable)
		}
	})
	mux.HandleFunc("POST /signal/market-switch", func(w http.ResponseWriter, r *http.Request) {
		select {
		case signals <- &event.MarketSwitchEvent{}:
			w.WriteHeader(http.StatusAccepted)
		default:
			http.Error(w, "signal queue full", http.StatusServiceUnavailable)
		}
	})

	srv := &http.Server{Addr: "localhost:6061", Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	slog.Info("Signal endpoint started on localhost:6061")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Signal endpoint failed", slog.Any("error", err))
	}
}
