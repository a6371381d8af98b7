package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("CART_RETENTION", "")
	t.Setenv("REDIS_HOST", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "guest_cart_id", cfg.Cart.GuestCookieName)
	assert.Equal(t, 30*24*time.Hour, cfg.Cart.Retention)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Cart.SecureCookie)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestParseSlice(t *testing.T) {
	assert.Equal(t, []string{}, parseSlice(""))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, parseSlice("http://a.test, http://b.test,"))
}

func TestParseDuration_Fallback(t *testing.T) {
	assert.Equal(t, time.Hour, parseDuration("not-a-duration", time.Hour))
	assert.Equal(t, 90*time.Minute, parseDuration("90m", time.Hour))
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", cfg.DSN())
}
