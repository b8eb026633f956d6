package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadResolvesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"api": {"key": " key-123 "},
		"level": {"name": "first_steps"},
		"strategy": {"name": "first_steps", "orderQty": 100, "timeoutMillis": 4000}
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "key-123", loaded.API.Key, "key is trimmed")
	assert.Equal(t, "https://api.stockfighter.io/ob/api/", loaded.API.BaseURL)
	assert.Equal(t, "first_steps", loaded.Level.Name)
	assert.False(t, loaded.Level.Pinned)
	assert.Equal(t, 20, loaded.Engine.HistorySize)
	assert.False(t, loaded.Journal.Enabled)
	assert.Equal(t, 4*time.Second, loaded.Strategy.Timeout)
}

func TestLoadKeyFromFile(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "api.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("file-key\n"), 0o600))

	path := writeConfig(t, `{
		"api": {"keyFile": "`+keyPath+`"},
		"level": {"name": "chock_a_block"},
		"strategy": {"name": "chock_a_block"}
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", loaded.API.Key)
}

func TestLoadPinnedLevel(t *testing.T) {
	path := writeConfig(t, `{
		"api": {"key": "k"},
		"level": {"venue": "TESTEX", "account": "EXB123456", "ticker": "FOOB"},
		"strategy": {"name": "sell_side"}
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Level.Pinned)
	assert.Equal(t, "TESTEX", loaded.Level.Venue)
}

func TestLoadRejectsPartialPin(t *testing.T) {
	path := writeConfig(t, `{
		"api": {"key": "k"},
		"level": {"venue": "TESTEX"},
		"strategy": {"name": "sell_side"}
	}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingKey(t *testing.T) {
	path := writeConfig(t, `{
		"level": {"name": "first_steps"},
		"strategy": {"name": "first_steps"}
	}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadJournalValidation(t *testing.T) {
	path := writeConfig(t, `{
		"api": {"key": "k"},
		"level": {"name": "first_steps"},
		"strategy": {"name": "first_steps"},
		"journal": {"enabled": true, "host": "localhost", "database": "fills"}
	}`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Journal.Enabled)
	assert.Equal(t, 5432, loaded.Journal.Port)
	assert.Equal(t, 1024, loaded.Journal.QueueSize)
	assert.Equal(t, "disable", loaded.Journal.SSLMode)

	missing := writeConfig(t, `{
		"api": {"key": "k"},
		"level": {"name": "first_steps"},
		"strategy": {"name": "first_steps"},
		"journal": {"enabled": true}
	}`)
	_, err = Load(missing)
	assert.Error(t, err)
}
