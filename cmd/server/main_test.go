package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/budgetledger/internal/infrastructure/config"
)

func TestNewJWTManager(t *testing.T) {
	manager, err := newJWTManager(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, manager, "auth disabled should not build a manager")

	_, err = newJWTManager(&config.Config{AuthEnabled: true})
	assert.Error(t, err)

	manager, err = newJWTManager(&config.Config{AuthEnabled: true, JWTSecret: "secret", JWTExpiration: time.Hour})
	require.NoError(t, err)
	require.NotNil(t, manager)

	token, err := manager.Generate("u1")
	require.NoError(t, err)
	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{
		HTTPPort:         "9090",
		HTTPReadTimeout:  time.Second,
		HTTPWriteTimeout: 2 * time.Second,
		HTTPIdleTimeout:  3 * time.Second,
	}

	server := newHTTPServer(cfg, http.NotFoundHandler())

	assert.Equal(t, ":9090", server.Addr)
	assert.Equal(t, time.Second, server.ReadTimeout)
	assert.Equal(t, 2*time.Second, server.WriteTimeout)
	assert.Equal(t, 3*time.Second, server.IdleTimeout)
}
