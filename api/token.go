package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrEthical07/authcore"
)

// TokenType is the only token type issued.
const TokenType = "Bearer"

// TokenPayload is returned on successful API sign in and refresh.
type TokenPayload struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// NewTokenPayload describes sess and its refresh token as seen at now.
// ExpiresIn is the whole number of seconds left, never negative.
func NewTokenPayload(sess *authcore.Session, refresh *authcore.RefreshToken, now time.Time) TokenPayload {
	p := TokenPayload{
		AccessToken: sess.Token,
		TokenType:   TokenType,
	}
	if left := sess.ExpiredAt.Sub(now); left > 0 {
		p.ExpiresIn = int64(left / time.Second)
	}
	if refresh != nil {
		p.RefreshToken = refresh.Token
	}
	return p
}

// WriteToken writes p with caching disabled.
func WriteToken(w http.ResponseWriter, p TokenPayload) error {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	return WriteJSON(w, http.StatusOK, p)
}

// WriteJSON writes v as an application/json response.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
