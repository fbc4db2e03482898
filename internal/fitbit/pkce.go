package fitbit

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// DefaultScopes 申请的全部权限
var DefaultScopes = []string{
	"activity", "cardio_fitness", "electrocardiogram", "heartrate",
	"irregular_rhythm_notifications", "location", "nutrition", "oxygen_saturation",
	"profile", "respiratory_rate", "settings", "sleep", "social", "temperature", "weight",
}

// GenerateCodeVerifier 32 字节随机数的 base64url（无填充）
func GenerateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateCodeChallenge S256 challenge
func GenerateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// AuthorizationURL 生成授权页面地址
func AuthorizationURL(cfg OAuthConfig, challenge, state string, scopes []string) string {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", cfg.ClientID)
	params.Set("scope", strings.Join(scopes, " "))
	params.Set("code_challenge", challenge)
	params.Set("code_challenge_method", "S256")
	params.Set("state", state)
	params.Set("redirect_uri", cfg.RedirectURI)
	return authURL + "?" + params.Encode()
}
