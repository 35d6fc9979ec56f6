package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	ID      int    `json:"id"`
	GroupId int    `json:"group_id"`
	Role    string `json:"role"`
	jwt.StandardClaims
}

var jwtSecret = []byte(getJwtSecret())

func getJwtSecret() string {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return "family-dev-secret"
	}
	return secret
}

func tokenLifespan() time.Duration {
	minutes, err := strconv.Atoi(os.Getenv("TOKEN_MINUTE_LIFESPAN"))
	if err != nil || minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

func JwtGenerate(userID int, groupId int, role string) (string, error) {
	return jwtGenerateAt(userID, groupId, role, time.Now(), tokenLifespan())
}

func jwtGenerateAt(userID int, groupId int, role string, now time.Time, ttl time.Duration) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:      userID,
		GroupId: groupId,
		Role:    role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
	})

	token, err := t.SignedString(jwtSecret)
	if err != nil {
		return "", err
	}

	return token, nil
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret, nil
	})
}

// Authenticate turns a bearer token into its claims; every failure is an Auth error.
func Authenticate(token string) (*JwtCustomClaim, error) {
	if token == "" {
		return nil, AuthError("missing token")
	}
	parsed, err := JwtValidate(token)
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, AuthError("token expired")
		}
		return nil, AuthError("invalid token")
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid || claims.ID <= 0 {
		return nil, AuthError("invalid token")
	}
	return claims, nil
}
