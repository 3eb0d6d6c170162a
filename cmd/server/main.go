// shsh-relay - collaborative terminal-sharing relay server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/ashureev/shsh-relay/internal/api"
	"github.com/ashureev/shsh-relay/internal/auth"
	"github.com/ashureev/shsh-relay/internal/backend"
	"github.com/ashureev/shsh-relay/internal/config"
	"github.com/ashureev/shsh-relay/internal/dashboard"
	"github.com/ashureev/shsh-relay/internal/middleware"
	"github.com/ashureev/shsh-relay/internal/relay"
	"github.com/ashureev/shsh-relay/internal/relaypb"
	"github.com/ashureev/shsh-relay/internal/session"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting relay", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "dev", cfg.IsDevelopment())

	signer := auth.NewSigner(cfg.TokenSecret)
	registry := relay.NewRegistry()
	router := relay.NewRouter(registry, relay.NoPeers{})
	dashboards := dashboard.NewRegistry()

	sessionCfg := session.Config{
		ChunkBudget:    session.ChunkBatchBudget{MaxChunks: cfg.Session.ChunkMaxChunks, MaxBytes: cfg.Session.ChunkMaxBytes},
		BusCapacity:    cfg.Session.BusCapacity,
		UpdateQueueLen: cfg.Session.UpdateQueueLen,
	}
	beServer := backend.NewServer(registry, signer, sessionCfg, backend.Config{
		SyncInterval: cfg.Backend.SyncInterval,
		PingInterval: cfg.Backend.PingInterval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.StartReaper(ctx, registry, session.ReaperConfig{
		SweepInterval: cfg.Session.SweepInterval,
		IdleTimeout:   cfg.Session.IdleTimeout,
	})
	dashboard.StartReaper(ctx, dashboards, cfg.Dashboard.ReapInterval, cfg.Dashboard.MaxIdle)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	api.NewHandler(registry, router, dashboards, beServer).RegisterRoutes(r)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout; frontend/CLI connections are long-lived WebSockets
		IdleTimeout:  120 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		slog.Error("Failed to bind gRPC listener", "error", err)
		os.Exit(1)
	}
	grpcSrv := grpc.NewServer()
	relaypb.RegisterRelayServiceServer(grpcSrv, beServer)

	go func() {
		slog.Info("HTTP server listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()
	go func() {
		slog.Info("gRPC server listening", "addr", grpcLis.Addr())
		if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			slog.Error("gRPC server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()
	slog.Info("Shutting down gracefully...")

	grpcSrv.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Relay stopped successfully", "uptime_check", fmt.Sprintf("%v", time.Since(startTime)))
}

var startTime = time.Now()
