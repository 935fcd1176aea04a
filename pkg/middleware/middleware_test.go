package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
)

type stubUsers map[string]*user.User

func (s stubUsers) GetByUID(_ context.Context, uid string) (*user.User, error) {
	if u, ok := s[uid]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

func TestWithLogger_RecoversPanics(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)

	h := WithLogger(log, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		composables.UseLogger(r.Context()).Info("inside handler")
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	assert.Contains(t, rec.Body.String(), "INTERNAL_SERVER_ERROR")
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "request-id=req-1")
}

func TestWithLogger_KeepsRequestBody(t *testing.T) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})

	var got string
	h := WithLogger(log, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := new(bytes.Buffer)
		_, _ = b.ReadFrom(r.Body)
		got = b.String()
		_, ok := composables.UseRequestStart(r.Context())
		assert.True(t, ok)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/events/preflight", strings.NewReader(`{"events":[]}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, `{"events":[]}`, got)
}

func TestWithLogger_QuietPathsAndLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)

	opts := DefaultLoggerOptions()
	opts.QuietPaths = []string{"/debug/prometheus"}
	h := WithLogger(log, opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/events" {
			w.WriteHeader(http.StatusConflict)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))
	assert.Empty(t, buf.String())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Contains(t, buf.String(), "request completed")
	assert.Contains(t, buf.String(), "level=warning")
	assert.Contains(t, buf.String(), "status=409")
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, levelFor(http.StatusNoContent))
	assert.Equal(t, logrus.WarnLevel, levelFor(http.StatusNotFound))
	assert.Equal(t, logrus.ErrorLevel, levelFor(http.StatusBadGateway))
}

func TestProvideUser(t *testing.T) {
	users := stubUsers{"u1": {UID: "u1", Username: "admin"}}
	var seen *user.User
	h := ProvideUser(users, "X-Hmis-User")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = composables.UseUser(r.Context())
	}))

	t.Run("known user", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Hmis-User", "u1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.NotNil(t, seen)
		assert.Equal(t, "admin", seen.Username)
	})

	t.Run("anonymous", func(t *testing.T) {
		seen = nil
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("unknown user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Hmis-User", "ghost")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNKNOWN_USER")
	})
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerPeriod: 1, KeyHeader: "X-Real-IP"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
}

func TestRequestParams(t *testing.T) {
	var params *composables.Params
	h := RequestParams("X-Real-IP", "X-Request-ID")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ = composables.UseParams(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "192.0.2.7, 10.0.0.1")
	req.Header.Set("X-Request-ID", "abc")
	req.Header.Set("User-Agent", "hmisctl")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, params)
	assert.Equal(t, "192.0.2.7", params.IP)
	assert.Equal(t, "abc", params.RequestID)
	assert.Equal(t, "hmisctl", params.UserAgent)
}
