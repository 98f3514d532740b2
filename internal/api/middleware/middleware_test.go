package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/rawspool/internal/db"
)

type memSettings struct {
	mu   sync.Mutex
	vals map[string]string
}

func newMemSettings() *memSettings {
	return &memSettings{vals: make(map[string]string)}
}

func (m *memSettings) GetSetting(_ context.Context, key string) (*db.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &db.Setting{Key: key, Value: v}, nil
}

func (m *memSettings) SetSetting(_ context.Context, key, value string, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T, enabled bool) (*gin.Engine, *AuthMiddleware) {
	t.Helper()
	auth, err := NewAuthMiddleware(context.Background(), newMemSettings(), AuthConfig{Enabled: enabled, TokenDuration: time.Hour})
	require.NoError(t, err)

	r := gin.New()
	r.POST("/setup", auth.SetupHandler)
	r.POST("/login", auth.LoginHandler)
	r.GET("/status", auth.StatusHandler)
	r.PUT("/password", auth.RequireAuth(), auth.ChangePasswordHandler)
	r.GET("/private", auth.RequireAuth(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r, auth
}

func do(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tokenFrom(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestAuth_SetupLoginAndAccess(t *testing.T) {
	r, _ := newAuthRouter(t, true)

	w := do(r, http.MethodGet, "/private", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/login", `{"password":"secret1"}`, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/setup", `{"password":"short"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/setup", `{"password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Result().Cookies())

	w = do(r, http.MethodPost, "/setup", `{"password":"secret2"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/login", `{"password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/login", `{"password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := tokenFrom(t, w)

	w = do(r, http.MethodGet, "/private", "", token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/private", "", token+"x")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_Status(t *testing.T) {
	r, _ := newAuthRouter(t, true)

	w := do(r, http.MethodGet, "/status", "", "")
	var st StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, StatusResponse{Enabled: true, SetupRequired: true}, st)

	token := tokenFrom(t, do(r, http.MethodPost, "/setup", `{"password":"secret1"}`, ""))
	w = do(r, http.MethodGet, "/status", "", token)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, StatusResponse{Enabled: true, Authenticated: true}, st)
}

func TestAuth_ChangePassword(t *testing.T) {
	r, _ := newAuthRouter(t, true)
	token := tokenFrom(t, do(r, http.MethodPost, "/setup", `{"password":"secret1"}`, ""))

	w := do(r, http.MethodPut, "/password", `{"current_password":"nope","new_password":"secret2"}`, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPut, "/password", `{"current_password":"secret1","new_password":"secret2"}`, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/login", `{"password":"secret2"}`, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_DisabledAllowsEverything(t *testing.T) {
	r, auth := newAuthRouter(t, false)
	assert.False(t, auth.Enabled())

	w := do(r, http.MethodGet, "/private", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_SecretIsReused(t *testing.T) {
	store := newMemSettings()
	a, err := NewAuthMiddleware(context.Background(), store, AuthConfig{Enabled: true})
	require.NoError(t, err)
	b, err := NewAuthMiddleware(context.Background(), store, AuthConfig{Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, a.secret, b.secret)

	token, err := a.generateToken()
	require.NoError(t, err)
	_, err = b.validateToken(token)
	assert.NoError(t, err)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := do(r, http.MethodGet, "/", "", "")
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 20)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "till-7")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "till-7", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) {
		var v map[string]string
		if err := c.ShouldBindJSON(&v); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := do(r, http.MethodPost, "/", `{"a":"0123456789"}`, "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	w = do(r, http.MethodPost, "/", `{}`, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
