// Package httputil holds the transport helpers shared by the gateway and the
// user service: client origin resolution and the JSON error envelope.
package httputil

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	dErrors "github.com/aBasicDream/tc/pkg/domain-errors"
)

// ClientIP resolves the client origin address: first hop of X-Forwarded-For,
// then X-Real-IP, then the connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && !strings.EqualFold(xff, "unknown") {
		if first, _, found := strings.Cut(xff, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" && !strings.EqualFold(realIP, "unknown") {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}

// ErrorBody is the JSON error envelope every rejection in the pipeline uses.
type ErrorBody struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Path      string `json:"path"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorMessage writes the error envelope with an explicit status.
func WriteErrorMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSON(w, status, ErrorBody{
		Code:      status,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
		Path:      r.URL.Path,
	})
}

// WriteError maps a domain error to its HTTP status and writes the envelope.
// Internal failures are logged by callers; the client sees a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	message := err.Error()
	if code == dErrors.CodeInternal {
		message = "internal server error"
	}
	WriteErrorMessage(w, r, StatusFor(code), message)
}

// StatusFor maps domain error codes to HTTP statuses. Credential and lockout
// rejections are distinguishable; wrong-password and no-such-user are not.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeUnauthorized, dErrors.CodeBadCredentials:
		return http.StatusUnauthorized
	case dErrors.CodeLockedOut, dErrors.CodeAccountDisabled:
		return http.StatusForbidden
	case dErrors.CodeTooManyAttempts:
		return http.StatusTooManyRequests
	case dErrors.CodeBusy:
		return http.StatusServiceUnavailable
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
