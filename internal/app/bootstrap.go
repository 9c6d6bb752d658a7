package app

import (
	"context"
	"log/slog"
	"sync"

	"lighter_go/internal/infra"
	"lighter_go/internal/infra/notify"
	"lighter_go/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Icons   *notify.IconCache
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, DB, assets)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Lighter Go...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage()
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	if removed, err := store.PruneOlderThan(cfg.Storage.HistoryDays); err != nil {
		slog.Warn("History prune failed", slog.Any("error", err))
	} else if removed > 0 {
		slog.Info("History pruned", slog.Int64("removed", removed))
	}

	// 4. Initialize Icon Cache
	icons, err := notify.NewIconCache()
	if err != nil {
		return err
	}
	b.Icons = icons
	slog.Info("✅ Icon cache ready")

	return nil
}

// PrefetchIcons warms the icon cache for every configured market in the
// background so the first notification does not wait on a download.
func (b *Bootstrap) PrefetchIcons(ctx context.Context) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, symbol := range b.Config.API.Lighter.Markets {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			if _, err := b.Icons.FetchIcon(sym); err != nil {
				slog.Warn("Failed to fetch icon", slog.String("symbol", sym), slog.Any("error", err))
			}
		}(symbol)
	}

	wg.Wait()
	slog.Info("✨ Icon prefetch completed")
}
