package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/config"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

// Gin context keys set by the middleware.
const (
	ContextUserID = "user_id"
	ContextClaims = "auth_claims"
)

var (
	// ErrMissingToken is returned when no credential was supplied.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned for tokens that fail validation.
	ErrInvalidToken = errors.New("invalid token")
)

// Validator validates bearer JWTs signed with a shared HS256 secret or with
// keys published on a JWKS endpoint.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled with a JWKS URL.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	v := &Validator{cfg: cfg, log: log.With().Str("component", "auth").Logger()}
	if !cfg.AuthEnabled || strings.TrimSpace(cfg.AuthJWKSURL) == "" {
		return v, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			v.log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	v.jwks = jwks
	return v, nil
}

// Enabled reports whether tokens are checked.
func (v *Validator) Enabled() bool {
	return v != nil && v.cfg.AuthEnabled
}

// ValidateToken parses a raw JWT and returns the user it identifies.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (string, jwt.MapClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if issuer := strings.TrimSpace(v.cfg.AuthIssuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	var keyFunc jwt.Keyfunc
	if v.jwks != nil {
		keyFunc = v.jwks.Keyfunc
		opts = append(opts, jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256"}))
	} else {
		secret := []byte(v.cfg.AuthJWTSecret)
		keyFunc = func(*jwt.Token) (any, error) { return secret, nil }
		opts = append(opts, jwt.WithValidMethods([]string{"HS256"}))
	}

	token, err := jwt.Parse(tokenString, keyFunc, opts...)
	if err != nil || !token.Valid {
		v.log.Debug().Err(err).Msg("jwt validation failed")
		return "", nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", nil, ErrInvalidToken
	}

	userID := claimString(claims, "sub")
	if userID == "" {
		userID = claimString(claims, "email")
	}
	if userID == "" {
		return "", nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return userID, claims, nil
}

// Middleware requires a valid bearer token when auth is enabled. With auth
// disabled the caller may identify itself with X-User-ID.
func (v *Validator) Middleware() gin.HandlerFunc {
	return v.middleware(true)
}

// OptionalMiddleware identifies the caller when a token is present but lets
// anonymous requests through.
func (v *Validator) OptionalMiddleware() gin.HandlerFunc {
	return v.middleware(false)
}

func (v *Validator) middleware(required bool) gin.HandlerFunc {
	if !v.Enabled() {
		return func(c *gin.Context) {
			if userID := strings.TrimSpace(c.GetHeader("X-User-ID")); userID != "" {
				c.Set(ContextUserID, userID)
			}
			c.Next()
		}
	}

	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			if !required {
				c.Next()
				return
			}
			platformerrors.WriteUnauthorized(c, ErrMissingToken.Error())
			c.Abort()
			return
		}

		userID, claims, err := v.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			platformerrors.WriteUnauthorized(c, ErrInvalidToken.Error())
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// Ready indicates if the validator is prepared.
func (v *Validator) Ready() bool {
	if !v.Enabled() || strings.TrimSpace(v.cfg.AuthJWKSURL) == "" {
		return true
	}
	return v.jwks != nil
}

// Close stops the background JWKS refresh.
func (v *Validator) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func claimString(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
