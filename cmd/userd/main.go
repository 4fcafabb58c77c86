// The user service owns accounts and the login flow: credential checks under
// a per-identity lock, token issuance, logout with revocation, and refresh.
package main

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/aBasicDream/tc/internal/audit"
	"github.com/aBasicDream/tc/internal/platform/cache"
	"github.com/aBasicDream/tc/internal/platform/config"
	"github.com/aBasicDream/tc/internal/platform/logger"
	platformredis "github.com/aBasicDream/tc/internal/platform/redis"
	"github.com/aBasicDream/tc/internal/security/lockout"
	"github.com/aBasicDream/tc/internal/security/revocation"
	"github.com/aBasicDream/tc/internal/security/stats"
	"github.com/aBasicDream/tc/internal/token"
	"github.com/aBasicDream/tc/internal/user/handler"
	"github.com/aBasicDream/tc/internal/user/models"
	"github.com/aBasicDream/tc/internal/user/service"
	"github.com/aBasicDream/tc/internal/user/store"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	log.Info("initializing user service", "addr", cfg.User.Addr)

	priv, pub := loadKeys(cfg, log)
	codec := token.New(priv, pub)

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	shared := cache.NewRedis(redisClient.Client)

	accounts := buildAccountStore(cfg, log)
	auditStore := buildAuditStore(cfg, log)

	svc := service.New(
		accounts,
		codec,
		revocation.NewStore(shared, log),
		lockout.NewGuard(shared, cfg.Auth.MaxLoginAttempts, cfg.Auth.LockoutWindow, log),
		stats.NewCollector(shared, log),
		shared,
		cfg.Auth,
		log,
		service.WithAuditStore(auditStore),
	)

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	handler.NewHandler(svc, log).Routes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.User.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("user service listening", "addr", cfg.User.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down user service gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if closer, ok := auditStore.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			log.Error("audit sink close failed", "error", err)
		}
	}
	log.Info("user service stopped")
}

func loadKeys(cfg config.Config, log *slog.Logger) (*rsa.PrivateKey, *rsa.PublicKey) {
	if cfg.User.PrivateKeyPath != "" && cfg.User.PublicKeyPath != "" {
		priv, pub, err := token.LoadKeyPair(cfg.User.PrivateKeyPath, cfg.User.PublicKeyPath)
		if err != nil {
			log.Error("key pair load failed", "error", err)
			os.Exit(1)
		}
		return priv, pub
	}

	log.Warn("no signing keys configured, generating a throwaway dev pair; tokens will not verify elsewhere")
	priv, pub, err := token.GenerateDevKeyPair()
	if err != nil {
		log.Error("dev key generation failed", "error", err)
		os.Exit(1)
	}
	return priv, pub
}

func buildAccountStore(cfg config.Config, log *slog.Logger) store.AccountStore {
	if cfg.User.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.User.DatabaseURL)
		if err != nil {
			log.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		return store.NewPostgres(pool)
	}

	log.Warn("no database configured, using in-memory accounts with a demo user")
	m := store.NewMemory()
	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Error("demo account setup failed", "error", err)
		os.Exit(1)
	}
	m.Add(models.Account{
		Username:     "demo",
		Nickname:     "Demo User",
		Email:        "demo@example.com",
		PasswordHash: string(hash),
		Status:       models.StatusActive,
	})
	return m
}

func buildAuditStore(cfg config.Config, log *slog.Logger) audit.Store {
	if cfg.Kafka.Brokers == "" {
		log.Info("no kafka brokers configured, keeping login events in memory")
		return audit.NewMemory()
	}
	publisher, err := audit.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.LoginTopic, log)
	if err != nil {
		log.Error("kafka publisher setup failed", "error", err)
		os.Exit(1)
	}
	return publisher
}
