package app

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"paca-stakes/internal/api"
)

// Serve runs the read-only HTTP API until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c, err := a.newChain()
	if err != nil {
		return err
	}
	defer c.Close()

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(store)

	if a.Config.App.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.New(api.Options{
		Listen:       a.Config.Server.Listen,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		CORSOrigins:  a.Config.Server.CORSOrigins,
		DefaultRate:  a.Config.Calculator.DailyRate,
		DefaultDays:  a.Config.Calculator.Days,
	}, c.agg, c.networks, store, a.Logger)

	a.Logger.Info().Str("listen", a.Config.Server.Listen).Msg("starting http api")
	return srv.Run(ctx)
}
