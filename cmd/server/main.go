package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/segyhp/movie-rental/internal/app"
	"github.com/segyhp/movie-rental/internal/config"
	"github.com/segyhp/movie-rental/internal/handler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := cfg.NewLogger(os.Stdout)

	ctx := context.Background()

	// Initialize store and services
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize store", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	router := handler.NewRouter(handler.Handlers{
		Health:   handler.NewHealthHandler(a.Storage.Checks, cfg.GetHealthTimeout()),
		Movies:   handler.NewMovieHandler(a.Catalog),
		Users:    handler.NewUserHandler(a.Catalog),
		Rentals:  handler.NewRentalHandler(a.Ledger, nil),
		LateFees: handler.NewLateFeeHandler(a.Catalog),
		Reports:  handler.NewReportHandler(a.Reports, nil),
	}, log)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "err", err)
			os.Exit(1)
		}
	}()

	grpcServer := grpc.NewServer()
	handler.RegisterRentalServiceServer(grpcServer, handler.NewGRPCHandler(a.Ledger, nil))

	lis, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		log.Error("failed to listen", "port", cfg.Server.GRPCPort, "err", err)
		os.Exit(1)
	}

	go func() {
		log.Info("gRPC server starting", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", "err", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "err", err)
	}
	grpcServer.GracefulStop()

	log.Info("server exited")
}
