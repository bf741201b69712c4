package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"label-catalog-api/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "label-catalog-api"

// TokenHandler authenticates the single back-office operator and issues
// HS256 bearer tokens.
type TokenHandler struct {
	Secret       []byte
	AdminEmail   string
	PasswordHash []byte
	TTL          time.Duration
	Now          func() time.Time
}

func NewTokenHandler(secret string, adminEmail string, passwordHash string, ttl time.Duration) (*TokenHandler, error) {
	if secret == "" || adminEmail == "" || passwordHash == "" {
		return nil, fmt.Errorf("%w: auth secret, admin email and password hash are required", apperr.ErrNotInitialized)
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenHandler{
		Secret:       []byte(secret),
		AdminEmail:   strings.ToLower(adminEmail),
		PasswordHash: []byte(passwordHash),
		TTL:          ttl,
		Now:          time.Now,
	}, nil
}

func (h *TokenHandler) Login(email string, password string) (string, error) {
	if !strings.EqualFold(strings.TrimSpace(email), h.AdminEmail) {
		return "", fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(h.PasswordHash, []byte(password)); err != nil {
		return "", fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)
	}

	now := h.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   h.AdminEmail,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.TTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.Secret)
}

func (h *TokenHandler) ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", apperr.ErrUnauthorized)
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return h.Secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(h.Now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return fmt.Errorf("%w: token has expired", apperr.ErrUnauthorized)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return fmt.Errorf("%w: token is malformed", apperr.ErrUnauthorized)
		default:
			return apperr.Wrap(apperr.ErrUnauthorized, err)
		}
	}
	if !parsed.Valid || !strings.EqualFold(claims.Subject, h.AdminEmail) {
		return fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized)
	}
	return nil
}
