package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"database_url": "postgres://localhost:5432/prflow",
		"api_url": "http://localhost:9000",
		"port": 9000,
		"crawl_timeout": "45s",
		"bulk_concurrency": 8,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost:5432/prflow", cfg.DatabaseURL)
	assert.Equal(t, "http://localhost:9000", cfg.APIURL)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, Duration(45*time.Second), cfg.CrawlTimeout)
	assert.Equal(t, 8, cfg.BulkConcurrency)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_NumericTimeout(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"crawl_timeout": 1.5}`), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, Duration(1500*time.Millisecond), cfg.CrawlTimeout)
}

func TestLoadConfig_BadTimeout(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"crawl_timeout": "soon"}`), 0644))

	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/prflow")
	t.Setenv("PRFLOW_API_URL", "http://api.internal:8000")
	t.Setenv("PORT", "8081")

	cfg := FromEnv()

	assert.Equal(t, "postgres://env/prflow", cfg.DatabaseURL)
	assert.Equal(t, "http://api.internal:8000", cfg.APIURL)
	assert.Equal(t, 8081, cfg.Port)
}

func TestFromEnv_BadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")
	assert.Equal(t, 0, FromEnv().Port)
}

func TestValidate(t *testing.T) {
	notDir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0644))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "valid", cfg: Config{Port: 8000, APIURL: "http://localhost:8000", BulkConcurrency: 4}},
		{name: "empty", cfg: Config{}},
		{name: "port out of range", cfg: Config{Port: 70000}, wantErr: "port"},
		{name: "negative concurrency", cfg: Config{BulkConcurrency: -1}, wantErr: "bulk_concurrency"},
		{name: "negative timeout", cfg: Config{CrawlTimeout: Duration(-time.Second)}, wantErr: "crawl_timeout"},
		{name: "relative api url", cfg: Config{APIURL: "localhost:8000/api"}, wantErr: "api_url"},
		{name: "checkpoints dir is a file", cfg: Config{CheckpointsDir: notDir}, wantErr: "not a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		DatabaseURL:     "postgres://default/prflow",
		APIURL:          "http://default:8000",
		BulkConcurrency: 2,
	}

	partial := Config{
		DatabaseURL: "postgres://custom/prflow",
		Port:        9000,
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "postgres://custom/prflow", merged.DatabaseURL)
	assert.Equal(t, 9000, merged.Port)

	// Default values should fill in empty fields
	assert.Equal(t, "http://default:8000", merged.APIURL)
	assert.Equal(t, 2, merged.BulkConcurrency)
	assert.Equal(t, Duration(DefaultCrawlTimeout), merged.CrawlTimeout)
	assert.Equal(t, DefaultCheckpointsDir, merged.CheckpointsDir)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://custom/prflow"}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "postgres://custom/prflow", merged.DatabaseURL)
	assert.Equal(t, DefaultPort, merged.Port)
	assert.Equal(t, DefaultAPIURL, merged.APIURL)
	assert.Equal(t, DefaultBulkConcurrency, merged.BulkConcurrency)
}
