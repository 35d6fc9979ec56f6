package utils

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestJwtRoundTrip(t *testing.T) {
	token, err := JwtGenerate(7, 3, "MEMBER")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	claims, err := Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if claims.ID != 7 || claims.GroupId != 3 || claims.Role != "MEMBER" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	expired, err := jwtGenerateAt(7, 3, "MEMBER", time.Now().Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("jwtGenerateAt: %v", err)
	}
	fresh, _ := JwtGenerate(7, 3, "MEMBER")
	other, _ := JwtGenerate(8, 3, "ADMIN")
	a, b := strings.Split(fresh, "."), strings.Split(other, ".")
	forged := a[0] + "." + b[1] + "." + a[2]

	cases := []struct {
		name    string
		token   string
		message string
	}{
		{"missing", "", "missing token"},
		{"expired", expired, "token expired"},
		{"garbage", "not.a.token", "invalid token"},
		{"forged payload", forged, "invalid token"},
	}
	for _, tc := range cases {
		_, err := Authenticate(tc.token)
		var appErr *AppError
		if !errors.As(err, &appErr) || appErr.Kind != KindAuth {
			t.Fatalf("%s: expected Auth error, got %v", tc.name, err)
		}
		if appErr.Message != tc.message {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.message, appErr.Message)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if string(hashed) == "pw1" {
		t.Fatalf("password stored in plaintext")
	}
	if err := ComparePassword(string(hashed), "pw1"); err != nil {
		t.Fatalf("ComparePassword: %v", err)
	}
	if err := ComparePassword(string(hashed), "pw2"); err == nil {
		t.Fatalf("wrong password accepted")
	}
}
