package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/wordmine/internal/catalog"
	"github.com/abhisek/wordmine/internal/config"
	"github.com/abhisek/wordmine/internal/mastery"
	"github.com/abhisek/wordmine/internal/matcher"
	"github.com/abhisek/wordmine/internal/progress"
	"github.com/abhisek/wordmine/internal/session"
	"github.com/abhisek/wordmine/internal/store"
	"github.com/abhisek/wordmine/internal/store/storetest"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Addr: ":0"},
		Auth:      config.AuthConfig{Mode: config.AuthModeHeader, Header: "X-Student-ID"},
		RateLimit: config.RateLimitConfig{RPS: 100, Burst: 100},
	}
}

type fixture struct {
	srv   *Server
	store *store.Store
	hook  *test.Hook
}

func newFixture(t *testing.T, cfg *config.Config, mutate func(*Deps)) *fixture {
	t.Helper()
	s := storetest.Open(t)
	cat := catalog.NewStatic(catalog.Entry{ID: "v-casa", LanguagePair: "es-en", Term: "casa", Translation: "house"})
	cat.AddOption("seg-1", "opt-a", "casa")

	ledger := mastery.NewLedger(s.Gems(), mastery.DefaultConfig())
	collector := session.NewCollector(session.Deps{
		Sessions: s.Sessions(),
		Catalog:  cat,
		Matcher:  matcher.NewSubstring(cat, 5),
		Ledger:   ledger,
		Progress: progress.NewAggregator(s.Progress()),
	}, session.DefaultConfig())

	deps := Deps{Collector: collector, Sessions: s.Sessions(), Ledger: ledger, DB: s}
	if mutate != nil {
		mutate(&deps)
	}

	logger, hook := test.NewNullLogger()
	srv, err := New(deps, cfg, logger)
	require.NoError(t, err)
	return &fixture{srv: srv, store: s, hook: hook}
}

func (f *fixture) do(method, path, student string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if student != "" {
		req.Header.Set("X-Student-ID", student)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func submission(id string) map[string]any {
	return map[string]any{
		"sessionId":          id,
		"sessionType":        "free_play",
		"languagePair":       "es-en",
		"difficultyLevel":    "beginner",
		"totalSentences":     3,
		"completedSentences": 3,
		"totalSegments":      10,
		"correctSegments":    7,
		"incorrectSegments":  3,
		"finalScore":         640,
		"gemsCollected":      7,
		"speedBoostsUsed":    1,
		"segmentAttempts": []map[string]any{
			{"segmentId": "seg-1", "selectedOptionId": "opt-a", "isCorrect": true, "responseTime": 1500, "gemsEarned": 1},
			{"segmentId": "seg-2", "selectedOptionId": "opt-z", "isCorrect": false, "responseTime": 2500, "gemsEarned": 0},
		},
		"endedAt": "2026-03-02T09:30:00Z",
	}
}

func TestPostSession(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	rec := f.do(http.MethodPost, "/sessions", "stu-1", submission("client-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["duplicate"])
	assert.NotEmpty(t, body["sessionId"])
	assert.NotContains(t, body, "skipped")
	assert.Equal(t, map[string]any{"accuracy": 70.0, "averageResponseTime": 2000.0, "totalAttempts": 2.0}, body["metrics"])

	gem, err := f.store.Gems().Get(context.Background(), "stu-1", "v-casa")
	require.NoError(t, err)
	assert.Equal(t, 1, gem.CorrectEncounters)

	again := decode(t, f.do(http.MethodPost, "/sessions", "stu-1", submission("client-1")))
	assert.Equal(t, true, again["duplicate"])
	assert.Equal(t, body["sessionId"], again["sessionId"])
}

func TestPostSession_Errors(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sessions", "stu-1", submission("taken")).Code)

	badType := submission("client-2")
	badType["sessionType"] = "homework"
	noAssignment := submission("client-3")
	noAssignment["sessionType"] = "assignment"

	tests := []struct {
		name    string
		student string
		body    any
		status  int
		errText string
	}{
		{"no identity", "", submission("client-4"), http.StatusUnauthorized, "student identity required"},
		{"malformed json", "stu-1", `{"sessionId": `, http.StatusBadRequest, "malformed JSON body"},
		{"bad session type", "stu-1", badType, http.StatusBadRequest, "sessionType must be"},
		{"assignment without id", "stu-1", noAssignment, http.StatusBadRequest, "assignmentId"},
		{"foreign duplicate", "stu-2", submission("taken"), http.StatusConflict, "another student"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/sessions", tt.student, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["error"], tt.errText)
		})
	}
}

func TestPostSession_FractionalCounters(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	sub := submission("client-frac")
	sub["gemsCollected"] = 7.5
	sub["speedBoostsUsed"] = 0.5
	rec := f.do(http.MethodPost, "/sessions", "stu-1", sub)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sessions, err := f.store.Sessions().List(context.Background(), store.SessionQuery{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 7.5, sessions[0].GemsCollected)
	assert.Equal(t, 0.5, sessions[0].SpeedBoostsUsed)

	neg := submission("client-neg")
	neg["gemsCollected"] = -0.25
	rec = f.do(http.MethodPost, "/sessions", "stu-1", neg)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "gemsCollected must be non-negative")
}

type exploding struct{}

func (exploding) Ingest(context.Context, string, *session.Submission) (*session.Result, error) {
	return nil, errors.New("persist session: database is locked")
}

func TestPostSession_PrimaryFailureHidesDetails(t *testing.T) {
	f := newFixture(t, testConfig(), func(d *Deps) { d.Collector = exploding{} })

	rec := f.do(http.MethodPost, "/sessions", "stu-1", submission("client-1"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec)["error"])

	entry := f.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "stu-1", entry.Data["student_id"])
}

func TestPostSession_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 2}
	f := newFixture(t, cfg, nil)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sessions", "stu-1", submission("a")).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sessions", "stu-1", submission("b")).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/sessions", "stu-1", submission("c")).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sessions", "stu-2", submission("d")).Code, "buckets are per student")
}

func TestListSessions(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	for _, id := range []string{"s1", "s2", "s3"} {
		sub := submission(id)
		if id == "s2" {
			sub["sessionType"] = "assignment"
			sub["assignmentId"] = "asg-1"
		}
		require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sessions", "stu-1", sub).Code)
	}
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sessions", "stu-2", submission("other")).Code)

	body := decode(t, f.do(http.MethodGet, "/sessions?limit=2", "stu-1", nil))
	assert.Len(t, body["sessions"], 2)

	body = decode(t, f.do(http.MethodGet, "/sessions?assignmentId=asg-1", "stu-1", nil))
	list := body["sessions"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "s2", list[0].(map[string]any)["sessionId"])

	body = decode(t, f.do(http.MethodGet, "/sessions", "stu-3", nil))
	assert.Equal(t, []any{}, body["sessions"])

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/sessions?limit=zero", "stu-1", nil).Code)
}

func TestGemsAndDueReviews(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/sessions", "stu-1", submission("s1")).Code)

	body := decode(t, f.do(http.MethodGet, "/gems", "stu-1", nil))
	list := body["gems"].([]any)
	require.Len(t, list, 1)
	gem := list[0].(map[string]any)
	assert.Equal(t, "v-casa", gem["vocabularyItemId"])
	assert.Equal(t, "common", gem["rarity"])
	assert.Equal(t, "not_due", gem["reviewStatus"])
	assert.NotContains(t, gem, "version")

	body = decode(t, f.do(http.MethodGet, "/reviews/due", "stu-1", nil))
	assert.Empty(t, body["due"])

	f.srv.now = func() time.Time { return time.Now().AddDate(0, 0, 2) }
	body = decode(t, f.do(http.MethodGet, "/reviews/due", "stu-1", nil))
	due := body["due"].([]any)
	require.Len(t, due, 1)
	assert.Equal(t, "overdue", due[0].(map[string]any)["reviewStatus"])
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthz(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "", nil).Code)

	f = newFixture(t, testConfig(), func(d *Deps) { d.DB = downDB{} })
	rec := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "database unavailable", decode(t, rec)["error"])
}

func signed(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestJWTIdentity(t *testing.T) {
	resolver, err := NewIdentityResolver(config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: "s3cret"})
	require.NoError(t, err)

	request := func(auth string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/gems", nil)
		if auth != "" {
			r.Header.Set("Authorization", auth)
		}
		return r
	}

	valid := signed(t, "s3cret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "stu-9",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	id, err := resolver.Resolve(request("Bearer " + valid))
	require.NoError(t, err)
	assert.Equal(t, "stu-9", id)

	rejected := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"wrong secret":   "Bearer " + signed(t, "other", jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "stu-9"}),
		"wrong alg":      "Bearer " + signed(t, "s3cret", jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "stu-9"}),
		"no subject":     "Bearer " + signed(t, "s3cret", jwt.SigningMethodHS256, jwt.RegisteredClaims{}),
		"expired": "Bearer " + signed(t, "s3cret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "stu-9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}),
	}
	for name, auth := range rejected {
		_, err := resolver.Resolve(request(auth))
		assert.ErrorIs(t, err, ErrNoIdentity, name)
	}

	_, err = NewIdentityResolver(config.AuthConfig{Mode: config.AuthModeJWT})
	assert.Error(t, err)
	_, err = NewIdentityResolver(config.AuthConfig{Mode: "saml"})
	assert.Error(t, err)
}

func TestJWTMode_EndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: "s3cret"}
	f := newFixture(t, cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/gems", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "s3cret", jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "stu-1"}))
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/gems", "stu-1", nil).Code, "header identity is ignored in jwt mode")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.WithField("k", "v").Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.True(t, strings.Contains(buf.String(), `"k":"v"`))

	_, err = NewLogger(config.LogConfig{Level: "chatty"}, nil)
	assert.Error(t, err)
}
