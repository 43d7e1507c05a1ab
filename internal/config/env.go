package config

import (
	"fmt"
	"os"
	"strconv"
)

// Engine identifiers accepted in ASR_ENGINE.
const (
	EngineAzure  = "azure"
	EngineGoogle = "google"
)

// Storage backend identifiers accepted in STORAGE_BACKEND.
const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// MinioConfig holds the object storage connection settings.
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// Config holds the process-wide configuration, read once at startup and
// read-only afterwards.
type Config struct {
	Port     string
	Env      string // "development" or "production"
	LogLevel string

	UploadDir      string
	MaxUploadBytes int64
	FFmpegPath     string

	Engine            string
	AzureSpeechKey    string
	AzureSpeechRegion string
	GoogleCredentials string

	StorageBackend string
	Minio          MinioConfig
}

const defaultMaxUploadBytes = 50 << 20 // 50 MB

// Load reads the configuration from environment variables, applies
// defaults, and validates the startup-time requirements (engine
// credentials, storage settings). Missing credentials are a startup
// error, not a per-request one.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		Env:               getEnv("APP_ENV", "production"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		Engine:            getEnv("ASR_ENGINE", EngineAzure),
		AzureSpeechKey:    os.Getenv("AZURE_SPEECH_KEY"),
		AzureSpeechRegion: os.Getenv("AZURE_SPEECH_REGION"),
		GoogleCredentials: os.Getenv("GOOGLE_CREDENTIALS_PATH"),
		StorageBackend:    getEnv("STORAGE_BACKEND", StorageLocal),
		Minio: MinioConfig{
			Endpoint:        os.Getenv("MINIO_ENDPOINT"),
			AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("MINIO_SECRET_ACCESS_KEY"),
			Bucket:          os.Getenv("MINIO_BUCKET_NAME"),
		},
	}

	cfg.MaxUploadBytes = defaultMaxUploadBytes
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer, got %q", v)
		}
		cfg.MaxUploadBytes = n
	}

	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MINIO_USE_SSL must be a boolean, got %q", v)
		}
		cfg.Minio.UseSSL = useSSL
	}

	switch cfg.Engine {
	case EngineAzure:
		if cfg.AzureSpeechKey == "" || cfg.AzureSpeechRegion == "" {
			return nil, fmt.Errorf("AZURE_SPEECH_KEY and AZURE_SPEECH_REGION must be set when ASR_ENGINE=%s", EngineAzure)
		}
	case EngineGoogle:
		// Credentials resolve through GOOGLE_APPLICATION_CREDENTIALS,
		// handled by the client library itself.
	default:
		return nil, fmt.Errorf("unknown ASR_ENGINE %q (supported: %s, %s)", cfg.Engine, EngineAzure, EngineGoogle)
	}

	switch cfg.StorageBackend {
	case StorageLocal:
	case StorageMinio:
		m := cfg.Minio
		if m.Endpoint == "" || m.AccessKeyID == "" || m.SecretAccessKey == "" || m.Bucket == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY_ID, MINIO_SECRET_ACCESS_KEY, and MINIO_BUCKET_NAME must be set when STORAGE_BACKEND=%s", StorageMinio)
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (supported: %s, %s)", cfg.StorageBackend, StorageLocal, StorageMinio)
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in a non-production
// deployment, which controls whether diagnostic traces are included in
// error responses.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
