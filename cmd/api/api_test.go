package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/inkdrop/inkdrop/internal/auth"
	"github.com/inkdrop/inkdrop/internal/config"
	"github.com/inkdrop/inkdrop/internal/metrics"
	"github.com/inkdrop/inkdrop/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() config.Config {
	return config.Config{
		JWTAccessSecret:  "integration-access",
		JWTRefreshSecret: "integration-refresh",
		JWTAccessExpiry:  "15m",
		JWTRefreshExpiry: "7d",
	}
}

func newTestServer(t *testing.T) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r, err := newRouter(db, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newRouter: %v", err)
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, mock
}

// TestAPI_LoginThenListDrafts builds the full router over a sqlmock DB, logs in to get an
// access token, then calls GET /api/posts/my/drafts with it.
func TestAPI_LoginThenListDrafts(t *testing.T) {
	srv, mock := newTestServer(t)
	userID := uuid.New()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now()

	mock.ExpectQuery(`SELECT id, email, username, password_hash`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "bio", "avatar_url", "created_at", "updated_at"}).
			AddRow(userID.String(), "a@x.com", "alice", hash, nil, nil, now, now))
	mock.ExpectQuery(`INSERT INTO refresh_tokens`).
		WithArgs(userID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at"}).
			AddRow(uuid.NewString(), userID.String(), "tok", now.Add(time.Hour), now))
	mock.ExpectQuery(`AND is_published = false`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title", "slug", "content", "excerpt",
			"cover_image_url", "is_published", "published_at", "created_at", "updated_at"}).
			AddRow(uuid.NewString(), userID.String(), "Draft", "draft", "body", nil, nil, false, nil, now, now))

	// 1) Login, with mixed-case email to exercise normalisation
	body, _ := json.Marshal(map[string]string{"email": "  A@X.com ", "password": "password123"})
	loginResp, err := http.Post(srv.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer loginResp.Body.Close()
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("login status: got %d, want 200", loginResp.StatusCode)
	}
	var loginOut struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(loginResp.Body).Decode(&loginOut); err != nil || loginOut.AccessToken == "" {
		t.Fatalf("login response: %v %+v", err, loginOut)
	}

	// 2) Drafts with Bearer token
	req, _ := http.NewRequest("GET", srv.URL+"/api/posts/my/drafts", nil)
	req.Header.Set("Authorization", "Bearer "+loginOut.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("drafts request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("drafts status: got %d, want 200", resp.StatusCode)
	}
	var drafts struct {
		Drafts []struct {
			Slug string `json:"slug"`
		} `json:"drafts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&drafts); err != nil {
		t.Fatalf("decode drafts: %v", err)
	}
	if len(drafts.Drafts) != 1 || drafts.Drafts[0].Slug != "draft" {
		t.Errorf("unexpected drafts: %+v", drafts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAPI_ProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/auth/me"},
		{"POST", "/api/auth/logout-all"},
		{"GET", "/api/posts/my/drafts"},
		{"POST", "/api/posts"},
		{"DELETE", "/api/posts/" + uuid.NewString()},
	} {
		req, _ := http.NewRequest(tc.method, srv.URL+tc.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: got %d, want 401", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestAPI_UnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/nowhere")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", resp.StatusCode)
	}
	var out struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error != "Not Found" || out.Message != "Route GET /api/nowhere not found" {
		t.Errorf("unexpected body: %+v", out)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing on 404")
	}
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status: got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(b, []byte("http_requests_total")) {
		t.Error("expected request counter in /metrics output")
	}
}

func TestNewRouter_BadExpiry(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cfg := testConfig()
	cfg.JWTAccessExpiry = "soon"
	if _, err := newRouter(db, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("expected error for invalid access expiry")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestAPI_LoginRateLimitIgnoresForwardedFor(t *testing.T) {
	srv, _ := newTestServer(t)

	var codes []int
	for i := 0; i < 8; i++ {
		req, _ := http.NewRequest("POST", srv.URL+"/api/auth/login", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.2.3.%d", i))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	for i, code := range codes {
		want := http.StatusBadRequest
		if i >= 5 {
			want = http.StatusTooManyRequests
		}
		if code != want {
			t.Errorf("request %d: got %d, want %d", i, code, want)
		}
	}
}

func TestAPI_UnknownRoutesShareOneMetricSeries(t *testing.T) {
	srv, _ := newTestServer(t)
	series := testutil.CollectAndCount(metrics.RequestTotal)

	for i := 0; i < 50; i++ {
		resp, err := http.Get(fmt.Sprintf("%s/nope-%d", srv.URL, i))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
	}

	if got := testutil.CollectAndCount(metrics.RequestTotal); got > series+1 {
		t.Errorf("series grew from %d to %d after distinct 404s", series, got)
	}
	if got := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues("GET", middleware.UnmatchedRoute, "404")); got < 50 {
		t.Errorf("unmatched 404 counter: got %v, want >= 50", got)
	}
}
