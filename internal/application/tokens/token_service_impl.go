package tokens

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/whiskypay/gateway/pkg/config"
)

type tokenService struct {
	secret   []byte
	tokenTTL time.Duration
}

func New(cfg config.JWTConfig) ITokenService {
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &tokenService{
		secret:   []byte(cfg.Secret),
		tokenTTL: ttl,
	}
}

func (s *tokenService) Issue(sessionID string) (string, error) {
	claims := jwt.StandardClaims{
		Subject:   sessionID,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (s *tokenService) Verify(tokenString string) (string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.Subject, nil
}
