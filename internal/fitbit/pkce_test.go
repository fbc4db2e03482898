package fitbit

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeChallenge_KnownAnswer(t *testing.T) {
	// RFC 7636 附录 B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", GenerateCodeChallenge(verifier))
}

func TestGenerateCodeVerifier(t *testing.T) {
	v1, err := GenerateCodeVerifier()
	require.NoError(t, err)
	v2, err := GenerateCodeVerifier()
	require.NoError(t, err)

	assert.Len(t, v1, 43)
	assert.NotEqual(t, v1, v2)
	assert.False(t, strings.ContainsAny(v1, "+/="))
}

func TestAuthorizationURL(t *testing.T) {
	cfg := OAuthConfig{ClientID: "client", RedirectURI: "https://app.example/callback"}
	raw := AuthorizationURL(cfg, "challenge", "state-1", nil)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.fitbit.com", u.Host)
	assert.Equal(t, "/oauth2/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "challenge", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "https://app.example/callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "heartrate")
	assert.Contains(t, q.Get("scope"), "sleep")
}
