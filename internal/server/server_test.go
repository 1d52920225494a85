package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/mailai/internal/assistant"
	"github.com/teemow/mailai/internal/config"
	"github.com/teemow/mailai/internal/gmail"
	"github.com/teemow/mailai/internal/google"
)

// fakeUpstream serves the subset of Gmail, Google OAuth and userinfo used here.
type fakeUpstream struct {
	mu       sync.Mutex
	status   int
	requests []string
	auth     string
}

func (f *fakeUpstream) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeUpstream) handler() http.Handler {
	const base = "/gmail/v1/users/me"
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+base+"/messages", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, map[string]any{
			"messages":      []map[string]string{{"id": "m1", "threadId": "t1"}, {"id": "m2", "threadId": "t2"}},
			"nextPageToken": "page-2",
		})
	})
	mux.HandleFunc("GET "+base+"/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		respond(w, message(r.PathValue("id"), "t1", 100))
	})
	mux.HandleFunc("GET "+base+"/threads/{id}", func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{
			"id":       r.PathValue("id"),
			"messages": []any{message("b", "t1", 200), message("a", "t1", 100)},
		})
	})
	mux.HandleFunc("POST "+base+"/messages/send", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, map[string]any{"id": "sent-1", "threadId": "t9", "labelIds": []string{"SENT"}})
	})
	mux.HandleFunc("POST "+base+"/messages/batchModify", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST "+base+"/messages/{id}/trash", func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{"id": r.PathValue("id")})
	})
	mux.HandleFunc("POST "+base+"/drafts", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, map[string]any{"id": "d1", "message": map[string]any{"id": "m-d1", "threadId": "t-d1"}})
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, map[string]any{"access_token": "ya29.new", "refresh_token": "1//refresh", "token_type": "Bearer"})
	})
	mux.HandleFunc("GET /oauth2/v2/userinfo", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, map[string]any{"name": "Jane Doe", "email": "jane@example.com"})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.auth = r.Header.Get("Authorization")
		status := f.status
		f.mu.Unlock()

		if status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": "Invalid Credentials"}})
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func message(id, threadID string, internalDate int64) map[string]any {
	return map[string]any{
		"id":           id,
		"threadId":     threadID,
		"labelIds":     []string{"INBOX", "UNREAD"},
		"internalDate": strconv.FormatInt(internalDate, 10),
		"payload": map[string]any{
			"mimeType": "text/plain",
			"headers": []map[string]string{
				{"name": "Subject", "value": "Subject " + id},
				{"name": "From", "value": "alice@example.com"},
				{"name": "Message-ID", "value": "<" + id + "@example.com>"},
			},
			"body": map[string]string{"data": base64.URLEncoding.EncodeToString([]byte("body " + id))},
		},
	}
}

type stubProvider struct{ reply string }

func (s stubProvider) Complete(context.Context, []assistant.ChatMessage) (string, error) {
	return s.reply, nil
}

type testEnv struct {
	upstream *fakeUpstream
	server   *Server
	handler  http.Handler
}

func newTestEnv(t *testing.T, mutate func(*config.Config), provider assistant.Provider) *testEnv {
	t.Helper()
	fake := &fakeUpstream{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Google.ClientID = "client-id"
	cfg.Google.ClientSecret = "client-secret"
	cfg.Gmail.Endpoint = srv.URL + "/"
	if mutate != nil {
		mutate(&cfg)
	}

	if provider == nil {
		provider = assistant.NewOpenRouter(cfg.LLM)
	}

	s, err := New(cfg, Deps{
		Gateway: gmail.NewGateway(cfg.Gmail, gmail.WithHTTPClient(srv.Client())),
		OAuth: google.NewExchanger(cfg.Google,
			google.WithEndpoint(oauth2.Endpoint{
				AuthURL:   srv.URL + "/auth",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			}),
			google.WithHTTPClient(srv.Client()),
			google.WithUserInfoEndpoint(srv.URL+"/"),
		),
		Assistant: assistant.NewService(provider, nil),
	})
	require.NoError(t, err)

	return &testEnv{upstream: fake, server: s, handler: s.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const bearer = "Bearer ya29.token"

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(config.Default(), Deps{})
	assert.Error(t, err)
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Mail AI Backend is running"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestRequestID_Echoed(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
}

func TestBearerRequired(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"lowercase scheme", "bearer ya29.token"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, nil)

			rec := env.do(t, http.MethodPost, "/api/mail/list", `{}`, tt.header)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"Invalid authorization header"}`, rec.Body.String())
			assert.Zero(t, env.upstream.requestCount())
		})
	}
}

func TestList(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/mail/list", `{"maxResults":5}`, bearer)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "page-2", rec.Header().Get(HeaderNextPageToken))
	assert.Equal(t, "Bearer ya29.token", env.upstream.auth)

	emails := decodeBody[[]gmail.EmailRecord](t, rec)
	require.Len(t, emails, 2)
	assert.Equal(t, "m1", emails[0].ID)
	assert.Equal(t, "m2", emails[1].ID)
	assert.Equal(t, "body m1", emails[0].BodyText)
	assert.False(t, emails[0].IsRead)
}

func TestList_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"maxResults":`},
		{"wrong type", `{"maxResults":"ten"}`},
		{"invalid date", `{"after":"2024-01-01"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, nil)

			rec := env.do(t, http.MethodPost, "/api/mail/list", tt.body, bearer)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeBody[errorResponse](t, rec).Error)
			assert.Zero(t, env.upstream.requestCount())
		})
	}
}

func TestList_UpstreamStatusPassesThrough(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.upstream.status = http.StatusUnauthorized

	rec := env.do(t, http.MethodPost, "/api/mail/list", `{}`, bearer)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Error, "Invalid Credentials")
}

func TestThread(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/mail/thread/t1", "", bearer)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	emails := decodeBody[[]gmail.EmailRecord](t, rec)
	require.Len(t, emails, 2)
	assert.Equal(t, []string{"a", "b"}, []string{emails[0].ID, emails[1].ID})
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/mail/search", `{"query":"from:alice"}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeBody[[]gmail.EmailRecord](t, rec), 2)

	rec = env.do(t, http.MethodPost, "/api/mail/search", `{"query":"  "}`, bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendAndReply(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/mail/send", `{"to":"bob@example.com","subject":"Hi","body":"Hello"}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sent-1", decodeBody[map[string]any](t, rec)["id"])

	rec = env.do(t, http.MethodPost, "/api/mail/send", `{"subject":"Hi"}`, bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/mail/reply",
		`{"to":"bob@example.com","subject":"Hi","body":"Thanks","messageId":"m1","threadId":"t1"}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "t9", decodeBody[map[string]any](t, rec)["threadId"])

	rec = env.do(t, http.MethodPost, "/api/mail/reply", `{"to":"bob@example.com","messageId":"m1"}`, bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/mail/mark-read", `{"messageIds":[]}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Zero(t, env.upstream.requestCount())

	rec = env.do(t, http.MethodPost, "/api/mail/mark-read", `{"messageIds":["m1","m2"]}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.upstream.requestCount())
}

func TestDraftAndTrash(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/mail/drafts/create", `{"subject":"Later","body":"..."}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":"d1","message":{"id":"m-d1","threadId":"t-d1"}}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/mail/trash", `{"messageId":"m1"}`, bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/mail/trash", `{}`, bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/auth/login", "", "")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "/auth?")
	assert.Contains(t, location, "access_type=offline")
	assert.Contains(t, location, "client_id=client-id")
}

func TestLogin_MissingCredentials(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Google.ClientSecret = "" }, nil)

	rec := env.do(t, http.MethodGet, "/auth/login", "", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Missing Google Credentials"}`, rec.Body.String())
}

func TestCallback(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/auth/callback", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/auth/callback?code=4/abc", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tokens := decodeBody[google.TokenResponse](t, rec)
	assert.Equal(t, "ya29.new", tokens.AccessToken)
	assert.Equal(t, "1//refresh", tokens.RefreshToken)
	assert.Equal(t, int64(google.DefaultExpiresIn), tokens.ExpiresIn)
}

func TestRefreshAndProfile(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodPost, "/auth/refresh", `{"refresh_token":"1//refresh"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ya29.new", decodeBody[google.TokenResponse](t, rec).AccessToken)

	rec = env.do(t, http.MethodPost, "/auth/refresh", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/auth/profile", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jane@example.com", decodeBody[google.Profile](t, rec).Email)
}

func TestAssistant(t *testing.T) {
	env := newTestEnv(t, nil, stubProvider{reply: `{"action":{"type":"navigate","view":"sent"},"message":"Going to sent."}`})

	rec := env.do(t, http.MethodPost, "/api/assistant", `{"message":"show sent mail","context":{"currentView":"inbox"}}`, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"action":{"type":"navigate","view":"sent"},"message":"Going to sent."}`, rec.Body.String())
}

func TestAssistant_Errors(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/assistant", `{"message":"hi"}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"OpenRouter API key not configured"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/assistant", `{"message":""}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/mail/list", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, env.upstream.requestCount())
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/mail/list", "", bearer)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_ReadinessFollowsLifecycle(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.HTTPAddr = "127.0.0.1:0" }, nil)

	rec := env.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	done := make(chan error, 1)
	go func() { done <- env.server.Start() }()

	assert.Eventually(t, func() bool {
		return env.do(t, http.MethodGet, "/readyz", "", "").Code == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.server.Shutdown(ctx))
	assert.ErrorIs(t, <-done, http.ErrServerClosed)

	rec = env.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
