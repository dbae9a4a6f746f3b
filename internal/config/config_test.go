package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMemoryDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DOCSTORE_DRIVER", "memory")
	t.Setenv("DEFAULT_VAT_RATE", "1.5")
	t.Setenv("ENV", "dev")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.19, cfg.DefaultVATRate)
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.IsDev())
}

func TestLoadConfigParsesDatabaseURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DOCSTORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://admin:pw@db.internal/market?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "market", cfg.DBName)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DOCSTORE_DRIVER", "memory")

	_, err := LoadConfig()
	assert.Error(t, err)
}
