package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/whiskypay/gateway/pkg/config"
)

type stubTokenService struct {
	sessionID string
	err       error
}

func (s *stubTokenService) Issue(sessionID string) (string, error) { return "", nil }
func (s *stubTokenService) Verify(token string) (string, error)    { return s.sessionID, s.err }

func init() {
	gin.SetMode(gin.TestMode)
}

func sessionRouter(tokenSvc *stubTokenService) *gin.Engine {
	mw := NewMiddleware(tokenSvc, &config.Config{}, zerolog.Nop())
	router := gin.New()
	router.POST("/v1/sessions/:id/proof", mw.SessionTokenMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"session_id": c.GetString("session_id")})
	})
	return router
}

func TestSessionTokenMiddlewareRequiresToken(t *testing.T) {
	router := sessionRouter(&stubTokenService{sessionID: "sess-1"})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/proof", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionTokenMiddlewareAcceptsBearerToken(t *testing.T) {
	router := sessionRouter(&stubTokenService{sessionID: "sess-1"})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/proof", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionTokenMiddlewareAcceptsQueryToken(t *testing.T) {
	router := sessionRouter(&stubTokenService{sessionID: "sess-1"})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/proof?token=sometoken", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionTokenMiddlewareRejectsInvalidToken(t *testing.T) {
	router := sessionRouter(&stubTokenService{err: errors.New("bad token")})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/proof", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionTokenMiddlewareRejectsCrossSessionToken(t *testing.T) {
	// A token scoped to one session must not open another session's routes.
	router := sessionRouter(&stubTokenService{sessionID: "sess-2"})

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-1/proof", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPIKeyMiddleware(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.APIKey = "op-key"
	mw := NewMiddleware(&stubTokenService{}, cfg, zerolog.Nop())

	router := gin.New()
	router.GET("/v1/jobs/dead", mw.APIKeyMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/dead", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/jobs/dead", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/jobs/dead", nil)
	req.Header.Set("X-API-Key", "op-key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
