package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Gateway captures edge-service configuration.
type Gateway struct {
	Addr          string
	PublicKeyPath string
	// Scope is the system tag this gateway accepts in verified tokens.
	Scope       string
	PublicPaths []string
	// Routes maps a path prefix to a backend base URL, e.g.
	// "/api/user/=http://localhost:8081".
	Routes map[string]string
}

// User captures user-service configuration.
type User struct {
	Addr           string
	PrivateKeyPath string
	PublicKeyPath  string
	DatabaseURL    string
}

// Redis captures shared cache connection settings.
type Redis struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Auth captures the credential-throttling and token constants. The threshold
// and lockout duration are configuration constants, not runtime-mutable state.
type Auth struct {
	Scope            string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	MaxLoginAttempts int64
	LockoutWindow    time.Duration
	LockWait         time.Duration
	LockLease        time.Duration
}

// Kafka captures the audit collaborator settings. Empty brokers means the
// in-memory audit store is used instead.
type Kafka struct {
	Brokers    string
	LoginTopic string
}

type Config struct {
	Gateway Gateway
	User    User
	Redis   Redis
	Auth    Auth
	Kafka   Kafka
}

// defaultPublicPaths mirrors the path exemptions of the edge: login and
// registration, the public API surface, the monitor endpoints, and probes.
var defaultPublicPaths = []string{
	"/api/auth/login",
	"/api/auth/register",
	"/api/public/**",
	"/api/monitor/**",
	"/actuator/**",
	"/favicon.ico",
}

// Load builds a Config from environment variables so main stays lean.
// A .env file in the working directory is honored when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Gateway: Gateway{
			Addr:          getenv("GATEWAY_ADDR", ":8080"),
			PublicKeyPath: getenv("JWT_PUBLIC_KEY_PATH", ""),
			Scope:         getenv("JWT_SCOPE", "tc-user"),
			PublicPaths:   getList("GATEWAY_PUBLIC_PATHS", defaultPublicPaths),
			Routes:        getRoutes("GATEWAY_ROUTES", map[string]string{"/api/": "http://localhost:8081"}),
		},
		User: User{
			Addr:           getenv("USER_ADDR", ":8081"),
			PrivateKeyPath: getenv("JWT_PRIVATE_KEY_PATH", ""),
			PublicKeyPath:  getenv("JWT_PUBLIC_KEY_PATH", ""),
			DatabaseURL:    getenv("DATABASE_URL", ""),
		},
		Redis: Redis{
			Addr:         getenv("REDIS_ADDR", "localhost:6379"),
			Password:     getenv("REDIS_PASSWORD", ""),
			DB:           getInt("REDIS_DB", 0),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Auth: Auth{
			Scope:            getenv("JWT_SCOPE", "tc-user"),
			AccessTokenTTL:   getDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
			RefreshTokenTTL:  getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			MaxLoginAttempts: int64(getInt("MAX_LOGIN_ATTEMPTS", 5)),
			LockoutWindow:    getDuration("LOCKOUT_WINDOW", 30*time.Minute),
			LockWait:         getDuration("LOGIN_LOCK_WAIT", time.Second),
			LockLease:        getDuration("LOGIN_LOCK_LEASE", 30*time.Minute),
		},
		Kafka: Kafka{
			Brokers:    getenv("KAFKA_BROKERS", ""),
			LoginTopic: getenv("KAFKA_LOGIN_TOPIC", "tc.user.login"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getRoutes parses "prefix=url,prefix=url" pairs.
func getRoutes(key string, fallback map[string]string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	routes := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		prefix, target, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && prefix != "" && target != "" {
			routes[prefix] = target
		}
	}
	if len(routes) == 0 {
		return fallback
	}
	return routes
}
