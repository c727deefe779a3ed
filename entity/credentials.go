package entity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// AccessExpiry reads the exp claim of a JWT access token. The signature is
// not verified, the result is for display only.
func (c Credentials) AccessExpiry() (time.Time, bool) {
	if c.AccessToken == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}
