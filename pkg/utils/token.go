package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/appnity/bannerstudio-backend/internal/config"
)

const (
	RoleAdmin = "ADMIN"

	tokenIssuer = "bannerstudio-backend"
)

var ErrNoSigningSecret = errors.New("JWT_SECRET is not configured")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func signingKey() ([]byte, error) {
	if config.AppConfig == nil || config.AppConfig.JWTSecret == "" {
		return nil, ErrNoSigningSecret
	}
	return []byte(config.AppConfig.JWTSecret), nil
}

// GenerateToken signs a token for subject with the given role.
func GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	key, err := signingKey()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        GenerateID(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

func ValidateToken(tokenString string) (*Claims, error) {
	key, err := signingKey()
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Helper for IDs
func GenerateID() string {
	return uuid.New().String()
}
