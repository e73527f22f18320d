package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer identifies tokens minted for the leveling API.
const TokenIssuer = "chatr"

// TokenAudience scopes tokens to this service.
const TokenAudience = "leveling"

// TokenConfig defines how service tokens are signed and verified.
type TokenConfig struct {
	Secret []byte
	Now    func() time.Time
}

// SignServiceToken mints an HS256 bearer token for a calling service.
func SignServiceToken(cfg TokenConfig, subject string, ttl time.Duration) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", errors.New("token secret is not configured")
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	issuedAt := now()
	claims := jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Audience:  jwt.ClaimStrings{TokenAudience},
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return signed, nil
}

// VerifyServiceToken validates an HS256 bearer token and returns its
// subject.
func VerifyServiceToken(cfg TokenConfig, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("token is required")
	}
	if len(cfg.Secret) == 0 {
		return "", errors.New("token secret is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return cfg.Secret, nil
	}, opts...); err != nil {
		return "", fmt.Errorf("verify service token: %w", err)
	}
	return claims.Subject, nil
}

// requireToken guards mutating endpoints with bearer-token auth.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeJSON(w, http.StatusForbidden, errorBody{Message: "Access denied"})
			return
		}
		if _, err := VerifyServiceToken(s.tokens, token); err != nil {
			writeJSON(w, http.StatusForbidden, errorBody{Message: "Access denied"})
			return
		}
		next(w, r)
	}
}
