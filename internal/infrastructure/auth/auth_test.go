package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/health-agent/internal/config"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newValidator(t *testing.T, enabled bool) *Validator {
	t.Helper()
	v, err := NewValidator(context.Background(), &config.Config{
		AuthEnabled:   enabled,
		AuthJWTSecret: testSecret,
		AuthIssuer:    "health-agent",
	}, zerolog.Nop())
	require.NoError(t, err)
	return v
}

func TestValidateToken(t *testing.T) {
	v := newValidator(t, true)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{name: "subject", token: signToken(t, jwt.MapClaims{"sub": "u1", "iss": "health-agent", "exp": exp}, testSecret), want: "u1"},
		{name: "email fallback", token: signToken(t, jwt.MapClaims{"email": "a@b.c", "iss": "health-agent", "exp": exp}, testSecret), want: "a@b.c"},
		{name: "wrong secret", token: signToken(t, jwt.MapClaims{"sub": "u1", "iss": "health-agent", "exp": exp}, "other"), wantErr: true},
		{name: "wrong issuer", token: signToken(t, jwt.MapClaims{"sub": "u1", "iss": "elsewhere", "exp": exp}, testSecret), wantErr: true},
		{name: "expired", token: signToken(t, jwt.MapClaims{"sub": "u1", "iss": "health-agent", "exp": time.Now().Add(-time.Minute).Unix()}, testSecret), wantErr: true},
		{name: "no expiry", token: signToken(t, jwt.MapClaims{"sub": "u1", "iss": "health-agent"}, testSecret), wantErr: true},
		{name: "no subject", token: signToken(t, jwt.MapClaims{"iss": "health-agent", "exp": exp}, testSecret), wantErr: true},
		{name: "empty", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, _, err := v.ValidateToken(context.Background(), tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, userID)
		})
	}
}

func serve(h gin.HandlerFunc, header http.Header) (*httptest.ResponseRecorder, string) {
	var seen string
	r := gin.New()
	r.GET("/", h, func(c *gin.Context) {
		seen = c.GetString(ContextUserID)
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header = header
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func TestMiddleware(t *testing.T) {
	v := newValidator(t, true)
	token := signToken(t, jwt.MapClaims{"sub": "u1", "iss": "health-agent", "exp": time.Now().Add(time.Hour).Unix()}, testSecret)

	w, seen := serve(v.Middleware(), http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "u1", seen)

	w, _ = serve(v.Middleware(), http.Header{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = serve(v.Middleware(), http.Header{"Authorization": {"Bearer nope"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, seen = serve(v.OptionalMiddleware(), http.Header{})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, seen)

	w, _ = serve(v.OptionalMiddleware(), http.Header{"Authorization": {"Bearer nope"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_Disabled(t *testing.T) {
	v := newValidator(t, false)
	assert.True(t, v.Ready())

	w, seen := serve(v.Middleware(), http.Header{"X-User-Id": {"header-user"}})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "header-user", seen)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken("abc"))
}
