package rtdb

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(55 * time.Minute)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	tests := []struct {
		name      string
		token     string
		expiresIn string
		want      time.Time
	}{
		{name: "exp claim wins", token: signed, expiresIn: "3600", want: exp},
		{name: "opaque token uses expiresIn", token: "opaque", expiresIn: "3600", want: now.Add(time.Hour)},
		{name: "nothing usable expires now", token: "opaque", expiresIn: "", want: now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenExpiry(tt.token, tt.expiresIn, now)
			if !got.Equal(tt.want) {
				t.Errorf("tokenExpiry() = %v, want %v", got, tt.want)
			}
		})
	}
}
