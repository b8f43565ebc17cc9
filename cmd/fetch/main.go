// Fetch downloads one file through the balancer and writes it to stdout.
//
// Usage:
//
//	go run ./cmd/fetch http://localhost:9000/files/plshelp.txt
//	go run ./cmd/fetch -timeout 5s -v http://localhost:9000/foo/bar.txt > bar.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/redirect-balancer/internal/client"
	"github.com/angeloszaimis/redirect-balancer/internal/wire"
	"github.com/angeloszaimis/redirect-balancer/pkg/logger"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "Timeout for the whole download")
	verbose := flag.Bool("v", false, "Log each exchange to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: fetch [-timeout d] [-v] http://host:port/path")
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(os.Stderr, level, false, "dev")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	resp, err := client.New(log).Get(ctx, flag.Arg(0))
	if err != nil {
		log.Error("Download failed", slog.Any("err", err))
		os.Exit(1)
	}

	if resp.Head.StatusCode != wire.StatusOK {
		log.Error("Server did not return the file",
			slog.String("url", resp.URL),
			slog.String("status", resp.Head.StatusCode))
		os.Exit(1)
	}

	if _, err := os.Stdout.Write(resp.Body); err != nil {
		log.Error("Failed to write output", slog.Any("err", err))
		os.Exit(1)
	}
}
