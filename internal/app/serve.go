package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/meneses-pt/goals.zone/internal/cli"
	"github.com/meneses-pt/goals.zone/internal/httpapi"
	"github.com/meneses-pt/goals.zone/internal/logging"
	"github.com/meneses-pt/goals.zone/internal/resolver"
	"github.com/meneses-pt/goals.zone/internal/teammatch"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8090, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	withResolver := fs.Bool("resolver", true, "Expose POST /api/v1/resolve for admin dry runs")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := validatePort(*port, "--port"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, logger, code := bootstrap(envLoader)
	if code != 0 {
		return code
	}
	pool, code := connect(cfg, logger)
	if code != 0 {
		return code
	}
	defer pool.Close()

	ctx, cancel := signalContext()
	defer cancel()

	var res httpapi.Resolver
	if *withResolver {
		matcher, err := teammatch.LoadMatcher(ctx, pool)
		if err != nil {
			logger.Error().Err(err).Msg("failed to load affiliate terms")
			fmt.Fprintf(os.Stderr, "Failed to load affiliate terms: %v\n", err)
			return 1
		}
		recognizer, err := newRecognizer(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build NER client: %v\n", err)
			return 1
		}
		// Dry runs never write NER logs.
		res = resolver.New(pool, matcher, recognizer, nil, logging.Component(logger, "resolver"))
	}

	srv := httpapi.NewServer(pool, res, logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AdminKeyHash:    cfg.AdminAPIKeyHash,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}
	return 0
}
