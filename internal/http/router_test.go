package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrlink/internal/email"
	"qrlink/internal/repository"
	"qrlink/internal/service"
	"qrlink/internal/storage"
)

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("db down") }

func setupRouter(t *testing.T, opts RouterOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	repo := repository.NewMemoryAccountRepository()
	accounts := service.NewAccountService(logger, repo, nil)
	links := service.NewLinkBuilder("https://links.example.com")
	qr, err := service.NewQRService(logger, accounts, storage.NewInlineAssetStore(), links, service.QROptions{Size: 64, RecoveryLevel: "low"})
	if err != nil {
		t.Fatalf("new qr service: %v", err)
	}
	admin := service.NewAdminService(logger, accounts, qr, links, email.NewDisabledSender(""))
	owner := service.NewOwnerService(logger, service.NewCredentialService(repo), accounts)
	public := service.NewPublicService(logger, accounts, nil)

	return NewRouter(logger, opts,
		NewAdminHandler(logger, admin),
		NewOwnerHandler(logger, owner),
		NewPublicHandler(logger, public),
		NewHealthHandler(logger, accounts),
	)
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var res testResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return res
}

func createUser(t *testing.T, r http.Handler, username, password string) (string, string) {
	t.Helper()
	rec := performRequest(r, http.MethodPost, "/api/admin/users", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		QRUUID  string `json:"qrUuid"`
		ViewURL string `json:"viewUrl"`
	}
	if err := json.Unmarshal(decode(t, rec).Data, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.QRUUID == "" || created.ViewURL != "https://links.example.com/scan/"+created.QRUUID {
		t.Fatalf("unexpected create response %+v", created)
	}
	return created.User.ID, created.QRUUID
}

func TestAdminCreateUser_Errors(t *testing.T) {
	r := setupRouter(t, RouterOptions{})
	createUser(t, r, "alice", "secret1")

	rec := performRequest(r, http.MethodPost, "/api/admin/users", map[string]string{"username": "alice", "password": "x"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	if res := decode(t, rec); res.Success || res.Error != "Username already exists" {
		t.Fatalf("unexpected envelope %+v", res)
	}

	rec = performRequest(r, http.MethodPost, "/api/admin/users", map[string]string{"username": "bob"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	for _, addr := range []string{"Bob Smith <bob@example.com>", "<carol@example.com>", "nope"} {
		rec = performRequest(r, http.MethodPost, "/api/admin/users", map[string]string{
			"username": "carol",
			"password": "secret3",
			"email":    addr,
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 for email %q, got %d", addr, rec.Code)
		}
	}

	rec = performRequest(r, http.MethodPost, "/api/admin/users", map[string]string{
		"username": "carol",
		"password": "secret3",
		"email":    "carol@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProfileLifecycle(t *testing.T) {
	r := setupRouter(t, RouterOptions{})
	userID, uuid := createUser(t, r, "alice", "secret1")

	rec := performRequest(r, http.MethodGet, "/api/public/qr/"+uuid, nil)
	if rec.Code != http.StatusForbidden || decode(t, rec).Error != "Profile is not published" {
		t.Fatalf("expected not published, got %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = performRequest(r, http.MethodPut, "/api/qr/"+uuid, map[string]any{
		"username": "alice",
		"password": "secret1",
		"isActive": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected read-only field to be rejected, got %d", rec.Code)
	}

	rec = performRequest(r, http.MethodPut, "/api/qr/"+uuid, map[string]any{
		"username":    "alice",
		"password":    "secret1",
		"name":        "Alice",
		"instagram":   "@alice",
		"isPublished": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodGet, "/api/public/qr/"+uuid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view map[string]any
	if err := json.Unmarshal(decode(t, rec).Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view["instagram"] != "https://instagram.com/alice" || view["name"] != "Alice" {
		t.Fatalf("unexpected view %+v", view)
	}
	if _, leaked := view["isActive"]; leaked {
		t.Fatalf("public view leaks account state")
	}

	rec = performRequest(r, http.MethodPut, "/api/admin/users/"+userID+"/toggle-status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodGet, "/api/public/qr/"+uuid, nil)
	if rec.Code != http.StatusForbidden || decode(t, rec).Error != "Profile is inactive" {
		t.Fatalf("expected inactive, got %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(r, http.MethodDelete, "/api/admin/users/"+userID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodGet, "/api/public/qr/"+uuid, nil)
	if rec.Code != http.StatusNotFound || decode(t, rec).Error != "Profile not found" {
		t.Fatalf("expected not found, got %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(r, http.MethodDelete, "/api/admin/users/"+userID, nil)
	if rec.Code != http.StatusNotFound || decode(t, rec).Error != "User not found" {
		t.Fatalf("expected user not found, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestOwnerUpdate_OtherUserUnauthorized(t *testing.T) {
	r := setupRouter(t, RouterOptions{})
	_, aliceUUID := createUser(t, r, "alice", "secret1")
	createUser(t, r, "bob", "secret2")

	rec := performRequest(r, http.MethodPut, "/api/qr/"+aliceUUID, map[string]any{
		"username": "bob",
		"password": "secret2",
		"name":     "Bob",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	rec = performRequest(r, http.MethodPut, "/api/qr/"+aliceUUID, map[string]any{"name": "Nobody"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without credentials, got %d", rec.Code)
	}
}

func TestAdminQR_RegenerateKeepsPayload(t *testing.T) {
	r := setupRouter(t, RouterOptions{})
	_, uuid := createUser(t, r, "alice", "secret1")

	var first, second struct {
		Payload string `json:"payload"`
		Version int    `json:"version"`
	}
	rec := performRequest(r, http.MethodGet, "/api/admin/qr/"+uuid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	_ = json.Unmarshal(decode(t, rec).Data, &first)

	rec = performRequest(r, http.MethodPost, "/api/admin/qr/"+uuid+"/regenerate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	_ = json.Unmarshal(decode(t, rec).Data, &second)

	if first.Payload != second.Payload || second.Version != first.Version+1 {
		t.Fatalf("unexpected qr assets %+v %+v", first, second)
	}

	rec = performRequest(r, http.MethodPost, "/api/admin/qr/missing/regenerate", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestAdminRoutes_BasicAuth(t *testing.T) {
	r := setupRouter(t, RouterOptions{AdminUsername: "root", AdminPassword: "hunter2"})

	rec := performRequest(r, http.MethodGet, "/api/admin/users", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.SetBasicAuth("root", "hunter2")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = performRequest(r, http.MethodGet, "/api/public/qr/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected public route to skip admin auth, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(t, RouterOptions{AllowedOrigins: []string{"https://app.example.com/"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/qr/abc", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("expected allowed origin header, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected foreign origin to be ignored")
	}
}

func TestHealth(t *testing.T) {
	r := setupRouter(t, RouterOptions{})
	rec := performRequest(r, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || !decode(t, rec).Success {
		t.Fatalf("expected healthy, got %d", rec.Code)
	}

	gin.SetMode(gin.TestMode)
	down := gin.New()
	down.GET("/healthz", NewHealthHandler(zap.NewNop(), failingPinger{}).Health)
	rec = performRequest(down, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupRouter(t, RouterOptions{})
	performRequest(r, http.MethodGet, "/api/public/qr/missing", nil)

	rec := performRequest(r, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `qrlink_http_requests_total{method="GET",route="/api/public/qr/:uuid",status="404"}`) {
		t.Fatalf("expected request counter for public route")
	}
}
