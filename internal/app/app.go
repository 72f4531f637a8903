package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"paca-stakes/internal/alerting"
	"paca-stakes/internal/config"
	"paca-stakes/internal/fetcher"
	"paca-stakes/internal/metrics"
	"paca-stakes/internal/network"
	"paca-stakes/internal/service"
	"paca-stakes/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives rendered tables. Defaults to stdout.
	Out io.Writer

	now func() time.Time
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
		now:    time.Now,
	}
}

// chain bundles everything a command needs to read from the contracts.
type chain struct {
	networks *network.Registry
	clients  *fetcher.Registry
	agg      *service.Aggregator
}

func (c *chain) Close() {
	c.clients.Close()
}

func (a *App) newChain() (*chain, error) {
	networks, err := a.Config.NetworkRegistry()
	if err != nil {
		return nil, err
	}
	metrics.MustRegister()
	clients := fetcher.NewEVMRegistry(networks, fetcher.DialOptions{
		Timeout:      a.Config.RPC.RequestTimeout,
		LogFromBlock: a.Config.RPC.LogFromBlock,
		Client: fetcher.ClientOptions{
			RateLimit: a.Config.RPC.RateLimit,
			Burst:     a.Config.RPC.Burst,
		},
	}, a.Logger)
	agg := service.New(clients, a.Logger, service.WithPoolRateTTL(a.Config.RPC.PoolRateTTL))
	return &chain{networks: networks, clients: clients, agg: agg}, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

// openStore opens the address book and alert log: Postgres when a DSN is
// configured, the bolt file otherwise.
func (a *App) openStore(ctx context.Context) (storage.Backend, error) {
	return storage.Open(ctx, a.Config.Database, a.Config.AddressBook)
}

func (a *App) closeStore(store storage.Backend) {
	if err := store.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("close address book")
	}
}

// resolveAddress falls back to the address book's current entry when address is empty.
func (a *App) resolveAddress(ctx context.Context, address string) (string, error) {
	if address != "" {
		return address, nil
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return "", err
	}
	defer a.closeStore(store)
	current, err := store.Current(ctx)
	if err != nil {
		return "", err
	}
	if current == "" {
		return "", errNoAddress
	}
	return current, nil
}

// remember records address as the current one. Failures are logged only.
func (a *App) remember(ctx context.Context, address string) {
	store, err := a.openStore(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("open address book")
		return
	}
	defer a.closeStore(store)
	if err := store.SetCurrent(ctx, address); err != nil {
		a.Logger.Warn().Err(err).Str("address", address).Msg("remember address")
	}
}
