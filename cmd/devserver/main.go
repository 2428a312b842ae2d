// Package main runs the development backend: login, the notification API,
// channel authorization, and the push endpoint on one port.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Matt0472/giftspire-client/internal/devserver"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		address   = flag.String("address", ":8080", "listen address")
		appKey    = flag.String("app-key", "giftspire", "push application key")
		appSecret = flag.String("app-secret", "giftspire-secret", "push application secret")
		jwtSecret = flag.String("jwt-secret", "dev-jwt-secret", "token signing secret")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	server := devserver.New(devserver.Config{
		AppKey:    *appKey,
		AppSecret: *appSecret,
		JWTSecret: *jwtSecret,
		Logger:    logger,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit

		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}()

	logger.Info("dev server listening",
		slog.String("address", *address),
		slog.String("app_key", *appKey),
	)
	if err := server.Start(*address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
