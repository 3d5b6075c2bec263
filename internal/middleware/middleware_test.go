package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insta-iq-go/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSessionAuth(t *testing.T) {
	jwtManager := token.NewJWTManager("secret", 1)
	r := gin.New()
	r.GET("/me", SessionAuth(jwtManager), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(SessionIDKey))
	})

	tok, sid, err := jwtManager.IssueSession()
	require.NoError(t, err)

	tests := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token " + tok, http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer " + tok, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.status, w.Code, tt.header)
		if tt.status == http.StatusOK {
			assert.Equal(t, sid, w.Body.String())
		}
	}
}

func TestRequestLoggerKeepsBody(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.POST("/echo", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(b))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"query":"hi"}`)))
	assert.Equal(t, `{"query":"hi"}`, w.Body.String())
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short"))
	assert.True(t, strings.HasSuffix(clip(strings.Repeat("x", maxLoggedBody+1)), "...(truncated)"))
}
