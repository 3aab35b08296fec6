package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"kardashev/internal/api"
	"kardashev/internal/dashboard"
	"kardashev/internal/indicators"
)

const defaultLoggingConfig = "<root>=INFO"

var logger = loggo.GetLogger("kardashev.server")

func main() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	listen := fs.String("listen", getenv("LISTEN_ADDR", ":8080"), "listen address")
	verbose := fs.Bool("verbose", false, "log at DEBUG")
	fs.Usage = usage
	fs.Parse(os.Args[1:])

	if err := configureLogging(*verbose); err != nil {
		fmt.Fprintln(os.Stderr, "invalid logging config:", err)
		os.Exit(2)
	}

	if err := serve(*listen); err != nil {
		fmt.Fprintln(os.Stderr, "server failed:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: server [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -listen    listen address (default: :8080, or LISTEN_ADDR)")
	fmt.Fprintln(os.Stderr, "  -verbose   log at DEBUG")
}

func configureLogging(verbose bool) error {
	config := strings.TrimSpace(os.Getenv("KARDASHEV_LOGGING_CONFIG"))
	if config == "" {
		config = defaultLoggingConfig
	}
	if err := loggo.ConfigureLoggers(config); err != nil {
		return errors.Trace(err)
	}
	if verbose {
		loggo.GetLogger("kardashev").SetLogLevel(loggo.DEBUG)
	}
	return nil
}

func serve(listen string) error {
	metrics := indicators.NewMetricsCollector()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := indicators.ServiceFromEnv(metrics)
	if err != nil {
		return errors.Trace(err)
	}
	loader, err := dashboard.NewLoader(svc, clock.WallClock)
	if err != nil {
		return errors.Trace(err)
	}

	server := &http.Server{
		Addr:              listen,
		Handler:           api.NewHandler(loader, registry).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Infof("server listening on %s", listen)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Annotatef(err, "listening on %s", listen)
	case <-ctx.Done():
		logger.Infof("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Trace(server.Shutdown(shutdownCtx))
	}
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
