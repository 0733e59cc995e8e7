package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pos")
	t.Setenv("CLOSE_PHRASE", "the kitchen is closed")
	t.Setenv("GLASSES_PER_BOTTLE", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Business.GlassesPerBottle)
	assert.Equal(t, "0 23 * * *", cfg.Scheduler.SummaryCron)
	assert.NotNil(t, cfg.Location())
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CLOSE_PHRASE", "x")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/pos")
	t.Setenv("CLOSE_PHRASE", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pos")
	t.Setenv("CLOSE_PHRASE", "x")

	t.Setenv("GLASSES_PER_BOTTLE", "zero")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("GLASSES_PER_BOTTLE", "4")
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")
	_, err = Load()
	assert.Error(t, err)
}
