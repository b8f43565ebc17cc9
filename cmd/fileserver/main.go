// Fileserver serves a directory over the balancer's wire protocol, for local
// runs against the balancer.
//
// Usage:
//
//	go run ./cmd/fileserver -addr 127.0.0.1:8081 -dir ./files
//	go run ./cmd/fileserver -addr 127.0.0.1:8082 -dir ./files -delay 300ms
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/redirect-balancer/internal/testserver"
	"github.com/angeloszaimis/redirect-balancer/pkg/logger"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8081", "Listen address")
	dir := flag.String("dir", ".", "Directory to serve")
	delay := flag.Duration("delay", 0, "Artificial delay before every response")
	level := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log := logger.New(*level, false, "dev")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := testserver.New(os.DirFS(*dir),
		testserver.WithDelay(*delay),
		testserver.WithLogger(log))

	if err := srv.Start(*addr); err != nil {
		log.Error("Failed to start file server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Serving files",
		slog.String("dir", *dir),
		slog.String("endpoint", srv.Endpoint().String()),
		slog.Duration("delay", *delay))

	<-ctx.Done()

	log.Info("Shutting down...", slog.Int64("requests", srv.Requests()))
	if err := srv.Close(); err != nil {
		log.Error("Error during shutdown", slog.Any("err", err))
	}
}
