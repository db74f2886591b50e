package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"linkhub.app/breaker"
	"linkhub.app/cache"
	"linkhub.app/config"
	"linkhub.app/database"
	"linkhub.app/lockout"
	"linkhub.app/metrics"
	"linkhub.app/models"
	"linkhub.app/pkg/logger"
	"linkhub.app/ratelimit"
	"linkhub.app/repository"
	"linkhub.app/service"
	"linkhub.app/shutdown"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubSuggester scripts AI provider behavior for handler tests.
type stubSuggester struct {
	suggestion string
	err        error
}

func (s *stubSuggester) SuggestBio(ctx context.Context, keywords string) (string, error) {
	return s.suggestion, s.err
}

type serverFixture struct {
	server   *Server
	db       *gorm.DB
	circuit  *breaker.Breaker
	provider *stubSuggester
	config   *config.Config
}

type fixtureOptions struct {
	apiMax         int
	signupMax      int
	clickMax       int
	metricsEnabled bool
}

func defaultFixtureOptions() fixtureOptions {
	return fixtureOptions{apiMax: 1000, signupMax: 1000, clickMax: 1000, metricsEnabled: true}
}

func newServerFixture(t *testing.T, opts fixtureOptions) *serverFixture {
	t.Helper()

	db, err := database.InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	registry := metrics.NewRegistry()
	log := logger.NewWithWriter(io.Discard, slog.LevelError)

	store := cache.NewMemoryCache(cache.MemoryConfig{MaxSize: 100, DefaultTTL: time.Minute, SweepInterval: time.Hour})
	t.Cleanup(store.Stop)

	newLimiter := func(policy string, max int) *ratelimit.Limiter {
		l := ratelimit.New(ratelimit.Config{
			Policy:        policy,
			MaxRequests:   max,
			Window:        time.Minute,
			SweepInterval: time.Hour,
		})
		t.Cleanup(l.Stop)
		return l
	}

	circuit := breaker.New(breaker.Config{
		Name:             "ai",
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 2,
		RequestTimeout:   time.Second,
	})

	profileRepo := repository.NewProfileRepository(db, registry, log)
	userRepo := repository.NewUserRepository(db, registry, log)
	tracker := lockout.NewTracker(repository.NewLockoutRepository(db, registry, log), lockout.Config{
		MaxAttempts:  5,
		BaseDuration: 30 * time.Minute,
	})

	provider := &stubSuggester{suggestion: "Coffee lover."}

	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Metrics.Enabled = opts.metricsEnabled

	server := NewServer(ServerOptions{
		DB:             db,
		Config:         cfg,
		ProfileService: service.NewProfileService(profileRepo, store, time.Minute, log),
		AuthService:    service.NewAuthService(userRepo, tracker, newLimiter("login", 1000), registry, log),
		AIService:      service.NewAIService(provider, circuit, registry, log),
		Cache:          store,
		Breaker:        circuit,
		Limiters: Limiters{
			API:    newLimiter("api", opts.apiMax),
			Signup: newLimiter("signup", opts.signupMax),
			Click:  newLimiter("click", opts.clickMax),
		},
		Registry: registry,
		Logger:   log,
		Inflight: shutdown.NewInflightTracker(),
	})

	return &serverFixture{server: server, db: db, circuit: circuit, provider: provider, config: cfg}
}

func (f *serverFixture) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.server.GetRouter().ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) createProfile(t *testing.T, handle string) {
	t.Helper()
	rec := f.request(t, http.MethodPost, "/api/profiles", models.CreateProfileRequest{
		UserID: 1,
		Handle: handle,
		Name:   "Test User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestProfileEndpoints(t *testing.T) {
	f := newServerFixture(t, defaultFixtureOptions())

	t.Run("create profile", func(t *testing.T) {
		f.createProfile(t, "alice")
	})

	t.Run("create profile with invalid handle", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/profiles", models.CreateProfileRequest{
			UserID: 1,
			Handle: "a", // below minimum length
			Name:   "Test",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate handle conflicts at the database", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/profiles", models.CreateProfileRequest{
			UserID: 2,
			Handle: "alice",
			Name:   "Impostor",
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var body models.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Internal server error", body.Error)
	})

	t.Run("get profile", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/profiles/alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var profile models.Profile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
		assert.Equal(t, "alice", profile.Handle)
	})

	t.Run("get unknown profile", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/profiles/nobody", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("add link", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/profiles/alice/links", models.CreateLinkRequest{
			Title: "Blog",
			URL:   "https://blog.example.com",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var link models.Link
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
		assert.NotEmpty(t, link.ID)
	})

	t.Run("add link with invalid url", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/profiles/alice/links", models.CreateLinkRequest{
			Title: "Bad",
			URL:   "not a url",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRedirectEndpoint(t *testing.T) {
	f := newServerFixture(t, defaultFixtureOptions())
	f.createProfile(t, "alice")

	rec := f.request(t, http.MethodPost, "/api/profiles/alice/links", models.CreateLinkRequest{
		Title: "Blog",
		URL:   "https://blog.example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var link models.Link
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))

	t.Run("redirects and counts the click", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/r/"+link.ID, nil)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://blog.example.com", rec.Header().Get("Location"))

		var stored models.Link
		require.NoError(t, f.db.Where("id = ?", link.ID).First(&stored).Error)
		assert.Equal(t, int64(1), stored.Clicks)
	})

	t.Run("unknown link", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/r/missing", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAuthEndpoints(t *testing.T) {
	f := newServerFixture(t, defaultFixtureOptions())

	t.Run("signup", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/auth/signup", models.LoginRequest{
			Email:    "alice@example.com",
			Password: "correct-horse",
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("duplicate signup", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/auth/signup", models.LoginRequest{
			Email:    "alice@example.com",
			Password: "other",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("login success", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "alice@example.com",
			Password: "correct-horse",
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong password and unknown account look identical", func(t *testing.T) {
		known := f.request(t, http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "alice@example.com",
			Password: "wrong",
		})
		unknown := f.request(t, http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "nobody@example.com",
			Password: "wrong",
		})

		assert.Equal(t, http.StatusUnauthorized, known.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("invalid email format", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "not-an-email",
			Password: "x",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("account locks after repeated failures", func(t *testing.T) {
		var last *httptest.ResponseRecorder
		for i := 0; i < 5; i++ {
			last = f.request(t, http.MethodPost, "/api/auth/login", models.LoginRequest{
				Email:    "victim@example.com",
				Password: "wrong",
			})
		}
		assert.Equal(t, http.StatusLocked, last.Code)

		var body models.ErrorResponse
		require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
		assert.Contains(t, body.Error, "temporarily locked")
		assert.NotContains(t, body.Error, "attempt")
	})
}

func TestRateLimitHeaders(t *testing.T) {
	f := newServerFixture(t, fixtureOptions{apiMax: 2, signupMax: 1000, clickMax: 1000, metricsEnabled: true})
	f.createProfile(t, "alice")

	rec := f.request(t, http.MethodGet, "/api/profiles/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	// The create in the fixture consumed one slot; the third request is denied.
	rec = f.request(t, http.MethodGet, "/api/profiles/alice", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestSignupRateLimitIsSeparate(t *testing.T) {
	f := newServerFixture(t, fixtureOptions{apiMax: 1000, signupMax: 1, clickMax: 1000, metricsEnabled: true})

	rec := f.request(t, http.MethodPost, "/api/auth/signup", models.LoginRequest{
		Email:    "a@example.com",
		Password: "x12345",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.request(t, http.MethodPost, "/api/auth/signup", models.LoginRequest{
		Email:    "b@example.com",
		Password: "x12345",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Other API routes are unaffected.
	rec = f.request(t, http.MethodPost, "/api/auth/login", models.LoginRequest{
		Email:    "a@example.com",
		Password: "x12345",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBioSuggestEndpoint(t *testing.T) {
	f := newServerFixture(t, defaultFixtureOptions())

	t.Run("success", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/profiles/alice/bio/suggest", models.BioSuggestionRequest{
			Keywords: "coffee, photography",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body models.BioSuggestionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Coffee lover.", body.Suggestion)
		assert.False(t, body.Degraded)
	})

	t.Run("degraded when circuit open", func(t *testing.T) {
		f.circuit.Open()
		defer f.circuit.Reset()

		rec := f.request(t, http.MethodPost, "/api/profiles/alice/bio/suggest", models.BioSuggestionRequest{
			Keywords: "coffee",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body models.BioSuggestionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Degraded)
		assert.NotEmpty(t, body.Suggestion)
	})

	t.Run("upstream failure maps to 503 with generic message", func(t *testing.T) {
		f.provider.err = errors.New("connection refused: internal-host:9443")
		defer func() { f.provider.err = nil }()

		rec := f.request(t, http.MethodPost, "/api/profiles/alice/bio/suggest", models.BioSuggestionRequest{
			Keywords: "coffee",
		})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		// Upstream detail never reaches the client.
		assert.NotContains(t, rec.Body.String(), "internal-host")
	})

	t.Run("missing keywords", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/profiles/alice/bio/suggest", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCorrelationIDHandling(t *testing.T) {
	f := newServerFixture(t, defaultFixtureOptions())

	t.Run("echoes inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.Header.Set("X-Correlation-ID", "inbound-42")

		rec := httptest.NewRecorder()
		f.server.GetRouter().ServeHTTP(rec, req)

		assert.Equal(t, "inbound-42", rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("falls back to request id header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
		req.Header.Set("X-Request-ID", "req-7")

		rec := httptest.NewRecorder()
		f.server.GetRouter().ServeHTTP(rec, req)

		assert.Equal(t, "req-7", rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("generates when absent", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/health/live", nil)
		assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	})
}

func TestHealthEndpoints(t *testing.T) {
	f := newServerFixture(t, defaultFixtureOptions())

	t.Run("healthy", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Status     string                     `json:"status"`
			Components map[string]componentHealth `json:"components"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "healthy", body.Components["database"].Status)
		assert.Equal(t, "healthy", body.Components["cache"].Status)
		assert.Equal(t, "closed", body.Components["circuit_breaker"].Status)
	})

	t.Run("degraded when circuit open", func(t *testing.T) {
		f.circuit.Open()
		defer f.circuit.Reset()

		rec := f.request(t, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body.Status)
	})

	t.Run("ready", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/health/ready", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ready")
	})

	t.Run("live", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/health/live", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Status string `json:"status"`
			Uptime string `json:"uptime"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "alive", body.Status)
		assert.NotEmpty(t, body.Uptime)
	})
}

func TestHealthUnhealthyDatabase(t *testing.T) {
	f := newServerFixture(t, defaultFixtureOptions())

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := f.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)

	rec = f.request(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		f := newServerFixture(t, defaultFixtureOptions())

		// Generate one recorded request first.
		f.request(t, http.MethodGet, "/health/live", nil)

		rec := f.request(t, http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "linkhub_http_requests_total")
	})

	t.Run("disabled", func(t *testing.T) {
		f := newServerFixture(t, fixtureOptions{apiMax: 1000, signupMax: 1000, clickMax: 1000, metricsEnabled: false})

		rec := f.request(t, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	f := newServerFixture(t, defaultFixtureOptions())

	f.server.GetRouter().GET("/panic", func(c *gin.Context) {
		panic("handler exploded")
	})

	rec := f.request(t, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
	assert.NotContains(t, rec.Body.String(), "exploded")

	// The server keeps serving after a panic.
	rec = f.request(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnmatchedRouteRecordedAsUnmatched(t *testing.T) {
	f := newServerFixture(t, defaultFixtureOptions())

	rec := f.request(t, http.MethodGet, "/no/such/route", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := f.request(t, http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, body, fmt.Sprintf("path=%q", "unmatched"))
}
