package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/aBasicDream/tc/pkg/domain-errors"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *http.Request)
		remote string
		want   string
	}{
		{
			name:   "forwarded chain takes first hop",
			setup:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1") },
			remote: "10.0.0.9:1234",
			want:   "203.0.113.7",
		},
		{
			name:   "real ip fallback",
			setup:  func(r *http.Request) { r.Header.Set("X-Real-IP", "203.0.113.8") },
			remote: "10.0.0.9:1234",
			want:   "203.0.113.8",
		},
		{
			name:   "unknown forwarded header ignored",
			setup:  func(r *http.Request) { r.Header.Set("X-Forwarded-For", "unknown") },
			remote: "10.0.0.9:1234",
			want:   "10.0.0.9",
		},
		{
			name:   "remote addr",
			setup:  func(*http.Request) {},
			remote: "192.0.2.4:5678",
			want:   "192.0.2.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x", nil)
			r.RemoteAddr = tt.remote
			tt.setup(r)
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)

	WriteError(w, r, dErrors.New(dErrors.CodeBusy, "system busy, try again later"))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusServiceUnavailable, body.Code)
	assert.Equal(t, "system busy, try again later", body.Message)
	assert.Equal(t, "/api/auth/login", body.Path)
	assert.NotZero(t, body.Timestamp)
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)

	WriteError(w, r, assert.AnError)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Message, "server detail must not leak")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, StatusFor(dErrors.CodeBadCredentials))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(dErrors.CodeUnauthorized))
	assert.Equal(t, http.StatusForbidden, StatusFor(dErrors.CodeLockedOut))
	assert.Equal(t, http.StatusTooManyRequests, StatusFor(dErrors.CodeTooManyAttempts))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(dErrors.CodeBusy))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(dErrors.CodeInternal))
}
