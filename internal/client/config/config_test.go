package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := &Config{
		DataDir:      filepath.Join(dir, "state"),
		MediaDir:     dir,
		Email:        "alice@example.com",
		ServerURL:    "https://sync.example.com",
		RefreshToken: "r-secret",
		AutoUpload:   true,
		WifiOnly:     true,
		LastSyncTime: time.Now().Truncate(time.Second),
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Email, loaded.Email)
	assert.Equal(t, cfg.RefreshToken, loaded.RefreshToken)
	assert.Equal(t, cfg.ServerURL, loaded.ServerURL)
	assert.True(t, loaded.AutoUpload)
	assert.True(t, loaded.WifiOnly)
	assert.True(t, cfg.LastSyncTime.Equal(loaded.LastSyncTime))
	assert.Equal(t, path, loaded.Path)
}

func TestConfig_LoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, (&Config{MediaDir: dir}).Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDataDir, loaded.DataDir)
	assert.Equal(t, DefaultServerURL, loaded.ServerURL)
	assert.Equal(t, DefaultSyncInterval, loaded.Interval())
}

func TestConfig_Interval(t *testing.T) {
	assert.Equal(t, DefaultSyncInterval, (&Config{}).Interval())
	assert.Equal(t, 2*time.Hour, (&Config{SyncIntervalHours: 2}).Interval())
	assert.Equal(t, DefaultSyncInterval, (&Config{SyncIntervalHours: -1}).Interval())
}

func TestConfig_Validate(t *testing.T) {
	valid := &Config{
		MediaDir:  "/photos",
		ServerURL: "https://sync.example.com",
		Email:     "alice@example.com",
	}
	assert.NoError(t, valid.Validate())

	missingMedia := *valid
	missingMedia.MediaDir = ""
	assert.Error(t, missingMedia.Validate())

	badURL := *valid
	badURL.ServerURL = "not a url"
	assert.Error(t, badURL.Validate())

	badEmail := *valid
	badEmail.Email = "nope"
	assert.Error(t, badEmail.Validate())

	noEmail := *valid
	noEmail.Email = ""
	assert.NoError(t, noEmail.Validate(), "email is only required once logged in")
}
