// Comando reconcile: una pasada sobre los pedidos en envoye_bc, pensada para cron.
// Sale con código 1 si la pasada se interrumpe (credenciales, base de datos).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/bc-sync-api/internal/bootstrap"
	"github.com/jhoicas/bc-sync-api/pkg/config"
	"github.com/jhoicas/bc-sync-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name + "-reconcile",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicialización")
	}
	defer deps.Close()

	if !deps.BC.Configured() {
		log.Error().Msg("Business Central sin credenciales, nada que reconciliar")
		deps.Close()
		os.Exit(1)
	}

	sum, err := deps.PurchaseOrders.ReconcilePending(ctx, cfg.Reconcile.BatchSize)
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int("checked", sum.Checked).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Msg("pasada de reconciliación terminada")

	if err != nil {
		deps.Close()
		os.Exit(1)
	}
}
