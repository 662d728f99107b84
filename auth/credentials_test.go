package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_String(t *testing.T) {
	assert := assert.New(t)
	creds := Credentials{
		AccessToken:  "secret-access",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
		IDToken:      "secret-id",
		RefreshToken: "secret-refresh",
		Scope:        "openid profile",
	}
	got := creds.String()
	assert.NotContains(got, "secret-access")
	assert.NotContains(got, "secret-id")
	assert.NotContains(got, "secret-refresh")
	assert.Contains(got, RedactedToken)
	assert.Contains(got, "Bearer")
}

func TestCredentials_Token(t *testing.T) {
	assert := assert.New(t)
	expiry := time.Now().Add(time.Hour)
	creds := Credentials{
		AccessToken:  "at-1",
		TokenType:    "Bearer",
		ExpiresAt:    expiry,
		IDToken:      "idt-1",
		RefreshToken: "rt-1",
	}
	tok := creds.Token()
	assert.Equal("at-1", tok.AccessToken)
	assert.Equal("Bearer", tok.TokenType)
	assert.Equal("rt-1", tok.RefreshToken)
	assert.Equal(expiry, tok.Expiry)
	assert.Equal("idt-1", tok.Extra("id_token"))
}

func TestDecodeCredentials(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	t.Run("expires-in-becomes-absolute", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		body := []byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":86400,"id_token":"idt-1","refresh_token":"rt-1","scope":"openid"}`)
		creds, err := decodeCredentials(body, now)
		require.NoError(err)
		assert.Equal(now.Add(24*time.Hour), creds.ExpiresAt)
		assert.Equal("at-1", creds.AccessToken)
		assert.Equal("rt-1", creds.RefreshToken)
		assert.Equal("openid", creds.Scope)
	})
	t.Run("missing-access-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := decodeCredentials([]byte(`{"token_type":"Bearer"}`), now)
		require.Error(err)
		assert.True(errors.Is(err, ErrInvalidParameter))
	})
	t.Run("malformed", func(t *testing.T) {
		require := require.New(t)
		_, err := decodeCredentials([]byte(`{`), now)
		require.Error(err)
	})
}
