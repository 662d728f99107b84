package dpop

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	jose "gopkg.in/square/go-jose.v2"
)

func verifyProof(t *testing.T, p *Proofer, serialized string) (header jose.Header, claims map[string]interface{}) {
	t.Helper()
	jws, err := jose.ParseSigned(serialized)
	require.NoError(t, err)
	require.Len(t, jws.Signatures, 1)
	header = jws.Signatures[0].Header
	// the proof must verify against the embedded key, which must be the
	// proofer's own
	require.NotNil(t, header.JSONWebKey)
	payload, err := jws.Verify(header.JSONWebKey)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &claims))
	return header, claims
}

func TestProofer_Proof(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	newTestProofer := func(t *testing.T) *Proofer {
		t.Helper()
		p, err := NewProofer()
		require.NoError(t, err)
		p.now = func() time.Time { return now }
		return p
	}

	t.Run("basics", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := newTestProofer(t)
		serialized, err := p.Proof("POST", "https://tenant.example.com/oauth/token", "", "")
		require.NoError(err)

		header, claims := verifyProof(t, p, serialized)
		assert.Equal("ES256", header.Algorithm)
		assert.Equal("POST", claims["htm"])
		assert.Equal("https://tenant.example.com/oauth/token", claims["htu"])
		assert.Equal(float64(now.Unix()), claims["iat"])
		assert.NotEmpty(claims["jti"])
		_, hasNonce := claims["nonce"]
		assert.False(hasNonce)
		_, hasAth := claims["ath"]
		assert.False(hasAth)
	})
	t.Run("nonce", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := newTestProofer(t)
		serialized, err := p.Proof("POST", "https://tenant.example.com/oauth/token", "server-nonce", "")
		require.NoError(err)
		_, claims := verifyProof(t, p, serialized)
		assert.Equal("server-nonce", claims["nonce"])
	})
	t.Run("access-token-hash", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := newTestProofer(t)
		serialized, err := p.Proof("GET", "https://api.example.com/resource", "", "the-access-token")
		require.NoError(err)
		_, claims := verifyProof(t, p, serialized)
		hash := sha256.Sum256([]byte("the-access-token"))
		assert.Equal(base64.RawURLEncoding.EncodeToString(hash[:]), claims["ath"])
	})
	t.Run("htu-strips-query-and-fragment", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := newTestProofer(t)
		serialized, err := p.Proof("POST", "https://tenant.example.com/oauth/token?foo=bar#frag", "", "")
		require.NoError(err)
		_, claims := verifyProof(t, p, serialized)
		assert.Equal("https://tenant.example.com/oauth/token", claims["htu"])
	})
	t.Run("unique-jti", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := newTestProofer(t)
		first, err := p.Proof("POST", "https://tenant.example.com/oauth/token", "", "")
		require.NoError(err)
		second, err := p.Proof("POST", "https://tenant.example.com/oauth/token", "", "")
		require.NoError(err)
		_, firstClaims := verifyProof(t, p, first)
		_, secondClaims := verifyProof(t, p, second)
		assert.NotEqual(firstClaims["jti"], secondClaims["jti"])
	})
}
