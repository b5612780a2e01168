package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"rategate/internal/clientip"
	"rategate/internal/config"
	"rategate/internal/gateway"
	"rategate/internal/obs"
	"rategate/internal/proxy"
	"rategate/internal/ratelimit"
	"rategate/internal/ratelimit/memory"
	rateredis "rategate/internal/ratelimit/redis"
	"rategate/internal/routing"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		cfgPath     string
		showVersion bool
	)

	cmd := &cobra.Command{
		Use:           "rategate",
		Short:         "Rate-limiting reverse proxy for the dashboard API",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(_ *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Println("rategate " + version)
				return nil
			}
			return run(cfgPath)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "./config.yaml", "path to the YAML config file")
	cmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	return cmd
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := obs.SetupLogger(cfg.Observability.LogLevel)

	for name, t := range cfg.Limits.Tiers {
		ratelimit.Override(name, t.MaxRequests, t.Window())
	}
	defaultTier, ok := ratelimit.Tier(cfg.Limits.DefaultTier)
	if !ok {
		logger.Warn().Str("tier", cfg.Limits.DefaultTier).Msg("unknown default tier, using standard")
		defaultTier = ratelimit.Standard()
	}

	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		limiter, err = rateredis.New(rateredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("redis limiter: %w", err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis rate limit store")
	} else {
		limiter = memory.New(memory.WithCleanupInterval(cfg.Limits.CleanupInterval()))
		logger.Info().Msg("using in-memory rate limit store")
	}
	defer func() { _ = limiter.Close() }()

	router := routing.New()
	for _, rc := range cfg.Routes {
		up, err := url.Parse(rc.Upstream.URL)
		if err != nil {
			return fmt.Errorf("route %q upstream: %w", rc.ID, err)
		}
		methods := map[string]struct{}{}
		for _, m := range rc.Match.Methods {
			methods[strings.ToUpper(m)] = struct{}{}
		}
		rt := &routing.Route{
			ID:      rc.ID,
			Methods: methods,
			Prefix:  rc.Match.PathPrefix,
			UpURL:   up,
			Timeout: time.Duration(rc.Upstream.TimeoutMS) * time.Millisecond,
			Tier:    rc.Tier,
		}
		if rc.Limit != nil {
			rt.MaxRequests = rc.Limit.MaxRequests
			rt.Window = rc.Limit.Window()
		}
		router.Add(rt)
	}

	trusted := map[string]struct{}{}
	for _, ip := range cfg.Limits.TrustedIPs {
		trusted[strings.TrimSpace(ip)] = struct{}{}
	}

	metrics := obs.NewMetrics(prometheus.DefaultRegisterer)
	ins, isInspector := limiter.(ratelimit.Inspector)
	if isInspector {
		obs.TrackStoreSize(prometheus.DefaultRegisterer, ins)
	}

	const adminPath = "/ratelimit/keys"
	skip := map[string]struct{}{
		"/health":                        {},
		"/version":                       {},
		cfg.Observability.PrometheusPath: {},
		adminPath:                        {},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(version))
	})
	mux.Handle(cfg.Observability.PrometheusPath, promhttp.Handler())
	if isInspector {
		mux.Handle(adminPath, gateway.Admin(ins))
	}

	proxyHandler := proxy.Handler(proxy.NewHTTPTransport())
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := skip[r.URL.Path]; ok {
			mux.ServeHTTP(w, r)
			return
		}
		proxyHandler.ServeHTTP(w, r)
	})

	handler := gateway.Chain(
		inner,
		obs.Logger(logger),
		gateway.BodyLimit(cfg.Server.MaxBody()),
		clientip.Middleware(),
		gateway.RouteMatcher(router, skip),
		metrics.Middleware(skip),
		gateway.RateLimit(gateway.RateLimitOptions{
			Limiter:    limiter,
			Default:    defaultTier,
			TrustedIPs: trusted,
			SkipPaths:  skip,
			Headers:    cfg.Limits.Headers,
			OnLimited: func(routeID, tier string) {
				metrics.RateLimited.WithLabelValues(routeID, tier).Inc()
			},
			OnError: func(routeID string) {
				metrics.LimiterErrors.WithLabelValues(routeID).Inc()
			},
		}),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout(),
		WriteTimeout:      cfg.Server.WriteTimeout(),
		IdleTimeout:       cfg.Server.IdleTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	logger.Info().Msg("bye")
	return nil
}
