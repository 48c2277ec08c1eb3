package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/rl1809/shopping-list/internal/adapter/handler"
	"github.com/rl1809/shopping-list/internal/app"
	"github.com/rl1809/shopping-list/internal/config"
)

func main() {
	// Configuration comes from $SLIST_CONFIG or config.yaml next to the binary
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.New(ctx, cfg)
	cancel()
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info("storage ready", "driver", cfg.Database.Driver, "redis", cfg.Redis.Addr != "")

	auth := handler.NewAuthenticator(cfg.Auth.UserHeader, cfg.Auth.JWTSecret)

	// Initialize gRPC server
	var grpcServer *grpc.Server
	if cfg.GRPC.Addr != "" {
		grpcServer = grpc.NewServer()
		handler.NewGRPCHandler(a.Ledger, a.Query, auth, cfg.Debug).Register(grpcServer)

		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			slog.Error("failed to listen", "addr", cfg.GRPC.Addr, "error", err)
			os.Exit(1)
		}

		go func() {
			slog.Info("gRPC server listening", "addr", cfg.GRPC.Addr)
			if err := grpcServer.Serve(lis); err != nil {
				slog.Error("gRPC server error", "error", err)
			}
		}()
	}

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(a.Ledger, a.Catalog, a.Query, auth, a.DB, cfg.Debug)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown", "error", err)
	}
	slog.Info("HTTP server stopped")

	if grpcServer != nil {
		grpcServer.GracefulStop()
		slog.Info("gRPC server stopped")
	}

	if err := a.Close(); err != nil {
		slog.Warn("failed to close storage", "error", err)
	}
	slog.Info("connections closed")
}
