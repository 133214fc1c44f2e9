package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/app"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/infra"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Pprof server, localhost only.
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("pprof server failed", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	infra.PrintBanner(bootstrap.Config)

	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("startup failed", slog.Any("error", err))
		bootstrap.Shutdown(context.Background())
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("shutdown signal received")

	// Detached context: the signal context is already canceled, but the
	// quoter still needs to cancel resting orders over REST.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	bootstrap.Shutdown(shutdownCtx)
}
