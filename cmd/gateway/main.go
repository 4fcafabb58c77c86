// The gateway is the authentication edge: every inbound request runs through
// the timing, request-log, and token-verification stages before being proxied
// to a backend. Business logic lives in the internal packages; main only
// wires dependencies and owns the server lifecycle.
package main

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/aBasicDream/tc/internal/gateway/monitor"
	"github.com/aBasicDream/tc/internal/gateway/pipeline"
	"github.com/aBasicDream/tc/internal/gateway/proxy"
	"github.com/aBasicDream/tc/internal/platform/cache"
	"github.com/aBasicDream/tc/internal/platform/config"
	"github.com/aBasicDream/tc/internal/platform/logger"
	platformredis "github.com/aBasicDream/tc/internal/platform/redis"
	"github.com/aBasicDream/tc/internal/security/revocation"
	"github.com/aBasicDream/tc/internal/security/stats"
	"github.com/aBasicDream/tc/internal/token"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	log.Info("initializing gateway",
		"addr", cfg.Gateway.Addr,
		"scope", cfg.Gateway.Scope,
		"routes", len(cfg.Gateway.Routes),
	)

	publicKey := loadPublicKey(cfg, log)

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	shared := cache.NewRedis(redisClient.Client)
	revocations := revocation.NewStore(shared, log)
	collector := stats.NewCollector(shared, log)

	routes := make([]proxy.Route, 0, len(cfg.Gateway.Routes))
	for prefix, target := range cfg.Gateway.Routes {
		u, err := url.Parse(target)
		if err != nil {
			log.Error("invalid route target", "prefix", prefix, "target", target, "error", err)
			os.Exit(1)
		}
		routes = append(routes, proxy.Route{Prefix: prefix, Target: u})
	}

	backend := proxy.New(log, routes)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", pipeline.Chain(
		withMonitor(backend, collector, log),
		pipeline.Timing(log),
		pipeline.RequestLog(log),
		pipeline.Auth(pipeline.AuthConfig{
			Verifier:    token.NewVerifier(publicKey),
			Revocations: revocations,
			Stats:       collector,
			Scope:       cfg.Gateway.Scope,
			PublicPaths: cfg.Gateway.PublicPaths,
			Logger:      log,
		}),
	))

	srv := &http.Server{
		Addr:              cfg.Gateway.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("gateway listening", "addr", cfg.Gateway.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				redisClient.RecordPoolStats()
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down gateway gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("gateway exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("gateway stopped")
}

// withMonitor serves the reporting endpoints locally and hands everything
// else to the proxy.
func withMonitor(backend http.Handler, collector *stats.Collector, log *slog.Logger) http.Handler {
	h := monitor.NewHandler(collector, log)
	mux := chi.NewRouter()
	h.Routes(mux)
	mux.NotFound(backend.ServeHTTP)
	return mux
}

// loadPublicKey reads the verification key from disk, falling back to a
// throwaway generated pair for local development.
func loadPublicKey(cfg config.Config, log *slog.Logger) *rsa.PublicKey {
	if cfg.Gateway.PublicKeyPath != "" {
		pub, err := token.LoadPublicKey(cfg.Gateway.PublicKeyPath)
		if err != nil {
			log.Error("public key load failed", "path", cfg.Gateway.PublicKeyPath, "error", err)
			os.Exit(1)
		}
		return pub
	}

	log.Warn("no public key configured, generating a throwaway dev key; tokens from other processes will not verify")
	_, pub, err := token.GenerateDevKeyPair()
	if err != nil {
		log.Error("dev key generation failed", "error", err)
		os.Exit(1)
	}
	return pub
}
