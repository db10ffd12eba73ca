package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "nordia-pos", cfg.App.Name)
	assert.Equal(t, "nordia", cfg.POS.Namespace)
	assert.Equal(t, 30*time.Second, cfg.POS.SyncInterval)
	assert.Equal(t, 5*time.Second, cfg.Providers.BackendTimeout)
	assert.Equal(t, 8*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 8, cfg.POS.MaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.POS.CacheTTL)
	assert.Equal(t, int32(10), cfg.DB.MaxConns)
	assert.Equal(t, "sale.created", cfg.NATS.Subject)
	assert.Empty(t, cfg.Providers.CosmosToken)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("POS_SYNC_INTERVAL", "90")
	v.Set("PROVIDER_TIMEOUT", "2s")
	v.Set("BACKEND_TIMEOUT", "basura")
	v.Set("DB_PORT", "6543")
	v.Set("POS_BACKEND_URL", "http://tienda:8080")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.POS.SyncInterval)
	assert.Equal(t, 2*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Providers.BackendTimeout, "valor inválido cae en el default")
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, "http://tienda:8080", cfg.POS.BackendURL)
}

func TestFromViper_DuracionesNoPositivasUsanDefault(t *testing.T) {
	for _, raw := range []string{"0", "-5", "0s", "-1m"} {
		v := viper.New()
		v.Set("POS_SYNC_INTERVAL", raw)
		cfg, err := FromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.POS.SyncInterval, raw)
	}
}

func TestFromViper_MaxRetriesInvalido(t *testing.T) {
	v := viper.New()
	v.Set("POS_MAX_RETRIES", "0")
	_, err := FromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "nordia", Password: "p@ss", DBName: "nordia", SSLMode: "disable"}
	assert.Equal(t, "postgres://nordia:p%40ss@db:5432/nordia?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
