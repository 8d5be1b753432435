// Spins up the dlist server, serving named lists and stacks over the Redis protocol.

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

	"github.com/nobletooth/dlist/pkg/config"
	"github.com/nobletooth/dlist/pkg/port"
	"github.com/nobletooth/dlist/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	printVersion   = flag.Bool("print_version", false, "Print the version and exit.")
	metricsAddress = flag.String("metrics_address", ":9090", "The ip:port serving Prometheus metrics; empty disables it.")
)

// serveMetrics exposes the Prometheus metrics until `ctx` is cancelled.
func serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: *metricsAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics server stopped.", "address", *metricsAddress, "error", err)
	}
}

func main() {
	config.InitFlags()
	utils.InitLogging()

	if *printVersion {
		slog.Info("dlist build info.", "version", utils.Version, "commit", utils.Commit, "build", utils.BuildTime)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *metricsAddress != "" {
		go serveMetrics(ctx)
	}

	store, err := port.NewListStore(ctx)
	if err != nil {
		slog.Error("Failed to create the list store.", "error", err)
		os.Exit(1)
	}
	if err := port.RunRedisServer(ctx, store, nil /*listening*/); err != nil {
		slog.Error("dlist server stopped.", "error", err)
		os.Exit(1)
	}
	slog.Info("dlist server stopped.", "uptime", utils.Uptime())
}
