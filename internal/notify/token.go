package notify

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "energy-pipeline"

// Claims are carried by the webhook bearer token.
type Claims struct {
	RunID string `json:"run_id"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for one run notification.
func SignToken(secret []byte, runID string, now time.Time, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("notify: empty secret")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	claims := Claims{
		RunID: runID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   runID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates a token issued by SignToken.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("notify: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("notify: empty secret")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("notify: invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("notify: invalid token")
	}
	if claims.RunID == "" {
		return nil, errors.New("notify: missing run_id")
	}
	return claims, nil
}
