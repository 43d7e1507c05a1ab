package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so ambient environment does
// not leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "UPLOAD_DIR", "MAX_UPLOAD_BYTES", "FFMPEG_PATH",
		"ASR_ENGINE", "AZURE_SPEECH_KEY", "AZURE_SPEECH_REGION", "GOOGLE_CREDENTIALS_PATH",
		"STORAGE_BACKEND", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY_ID", "MINIO_SECRET_ACCESS_KEY",
		"MINIO_BUCKET_NAME", "MINIO_USE_SSL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_SPEECH_KEY", "key")
	t.Setenv("AZURE_SPEECH_REGION", "westeurope")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "3000", cfg.Port)
	require.Equal(t, "production", cfg.Env)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "uploads", cfg.UploadDir)
	require.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	require.Equal(t, "ffmpeg", cfg.FFmpegPath)
	require.Equal(t, EngineAzure, cfg.Engine)
	require.Equal(t, StorageLocal, cfg.StorageBackend)
	require.False(t, cfg.IsDevelopment())
}

func TestLoadAzureRequiresCredentials(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "AZURE_SPEECH_KEY")
}

func TestLoadGoogleEngineNeedsNoAzureCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASR_ENGINE", "google")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, EngineGoogle, cfg.Engine)
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASR_ENGINE", "whisper")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown ASR_ENGINE")
}

func TestLoadMinioRequiresConnectionSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASR_ENGINE", "google")
	t.Setenv("STORAGE_BACKEND", "minio")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "MINIO_ENDPOINT")
}

func TestLoadMinioComplete(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASR_ENGINE", "google")
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ACCESS_KEY_ID", "minioadmin")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minioadmin")
	t.Setenv("MINIO_BUCKET_NAME", "audio")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StorageMinio, cfg.StorageBackend)
	require.Equal(t, "minio:9000", cfg.Minio.Endpoint)
	require.True(t, cfg.Minio.UseSSL)
}

func TestLoadRejectsBadMaxUploadBytes(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASR_ENGINE", "google")

	for _, bad := range []string{"abc", "-5", "0"} {
		t.Setenv("MAX_UPLOAD_BYTES", bad)
		_, err := Load()
		require.Error(t, err)
	}
}

func TestLoadDevelopmentMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASR_ENGINE", "google")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.IsDevelopment())
}
