package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aBasicDream/tc/internal/gateway/metrics"
	"github.com/aBasicDream/tc/internal/token"
	transporthttp "github.com/aBasicDream/tc/internal/transport/httputil"
)

// gatewayName is stamped on every request forwarded downstream so backends
// can reject traffic that did not pass through the edge.
const gatewayName = "tc-gateway"

// Downstream identity headers. Any values the caller supplied are discarded
// before the verified identity is written.
const (
	headerUserID   = "X-User-Id"
	headerUsername = "X-Username"
	headerGateway  = "X-Gateway"
	headerClientIP = "X-Client-Ip"
)

// TokenVerifier checks a compact token against an expected scope.
type TokenVerifier interface {
	Verify(tokenString, expectedScope string) (*token.Claims, error)
}

// RevocationChecker reports whether a token has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenString string) bool
}

// StatsRecorder receives best-effort validation counters.
type StatsRecorder interface {
	RecordTokenValidateSuccess(ctx context.Context, username, clientIP string)
	RecordTokenValidateFailed(ctx context.Context, clientIP, reason string)
	RecordBlacklistHit(ctx context.Context, clientIP string)
}

// Identity is the verified caller attached to the request context by the
// authentication stage. Values are fixed once set.
type Identity struct {
	UserID   int64
	Username string
	ClientIP string
	Gateway  string
}

type identityKey struct{}

// IdentityFrom returns the verified identity for the request, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// AuthConfig wires the authentication stage.
type AuthConfig struct {
	Verifier    TokenVerifier
	Revocations RevocationChecker
	Stats       StatsRecorder
	Scope       string
	PublicPaths []string
	Logger      *slog.Logger
}

// Auth verifies the bearer token on every non-public request. Requests that
// pass get identity headers and a context identity; everything else gets a
// uniform 401 envelope that does not distinguish the failure cause beyond a
// short message.
func Auth(cfg AuthConfig) Stage {
	return Stage{
		Name:  "auth",
		Order: OrderAuth,
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if isPublicPath(r.URL.Path, cfg.PublicPaths) {
					next.ServeHTTP(w, r)
					return
				}

				clientIP := transporthttp.ClientIP(r)

				tokenString, ok := bearerToken(r)
				if !ok {
					reject(w, r, cfg, "missing_token", "missing or malformed authorization header")
					return
				}

				if cfg.Revocations != nil && cfg.Revocations.IsRevoked(r.Context(), tokenString) {
					if cfg.Stats != nil {
						cfg.Stats.RecordBlacklistHit(r.Context(), clientIP)
					}
					reject(w, r, cfg, "revoked", "token has been revoked")
					return
				}

				claims, err := cfg.Verifier.Verify(tokenString, cfg.Scope)
				if err != nil {
					why := reason(err)
					if cfg.Stats != nil {
						cfg.Stats.RecordTokenValidateFailed(r.Context(), clientIP, why)
					}
					reject(w, r, cfg, why, "invalid or expired token")
					return
				}

				userID, err := claims.UserID()
				if err != nil || claims.Username == "" {
					if cfg.Stats != nil {
						cfg.Stats.RecordTokenValidateFailed(r.Context(), clientIP, "incomplete_claims")
					}
					reject(w, r, cfg, "incomplete_claims", "incomplete token")
					return
				}

				if cfg.Stats != nil {
					cfg.Stats.RecordTokenValidateSuccess(r.Context(), claims.Username, clientIP)
				}

				identity := Identity{
					UserID:   userID,
					Username: claims.Username,
					ClientIP: clientIP,
					Gateway:  gatewayName,
				}

				r.Header.Set(headerUserID, strconv.FormatInt(userID, 10))
				r.Header.Set(headerUsername, claims.Username)
				r.Header.Set(headerGateway, gatewayName)
				r.Header.Set(headerClientIP, clientIP)

				ctx := context.WithValue(r.Context(), identityKey{}, identity)
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		},
	}
}

func reject(w http.ResponseWriter, r *http.Request, cfg AuthConfig, why, message string) {
	metrics.UnauthorizedTotal.WithLabelValues(why).Inc()
	if cfg.Logger != nil {
		cfg.Logger.Info("request rejected",
			slog.String("path", r.URL.Path),
			slog.String("reason", why),
			slog.String("client_ip", transporthttp.ClientIP(r)),
		)
	}
	transporthttp.WriteErrorMessage(w, r, http.StatusUnauthorized, message)
}

func reason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, token.ErrScopeMismatch):
		return "scope_mismatch"
	default:
		return "malformed"
	}
}

// isPublicPath matches either exactly or by prefix when the pattern ends in
// "/**".
func isPublicPath(path string, patterns []string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "/**"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	t, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || t == "" {
		return "", false
	}
	return t, true
}
