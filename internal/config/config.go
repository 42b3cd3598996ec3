// Package config loads service configuration from the environment,
// with .env support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	ScratchDir string

	DatabaseURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	ElevenLabsKey string
	OpenAIKey     string
	TranscribeKey string

	VoicePool        []string
	CloneThreshold   float64
	FetchConcurrency int
}

// Load reads the environment, after merging in a .env file when one
// exists. Missing optional values fall back to defaults; missing
// credentials are left empty and surface as degraded behavior at the
// adapter that needs them.
func Load() (Config, error) {
	// A missing .env is fine in production.
	_ = godotenv.Load()

	cfg := Config{
		Addr:       getenv("VODUB_ADDR", ":8080"),
		ScratchDir: getenv("VODUB_SCRATCH_DIR", "/tmp/vodub"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getenv("MINIO_BUCKET", "dubs"),

		ElevenLabsKey: os.Getenv("ELEVENLABS_API_KEY"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		TranscribeKey: os.Getenv("ASSEMBLYAI_API_KEY"),
	}

	cfg.MinioUseSSL = os.Getenv("MINIO_USE_SSL") == "true"

	if pool := os.Getenv("VODUB_VOICE_POOL"); pool != "" {
		for _, v := range strings.Split(pool, ",") {
			if v = strings.TrimSpace(v); v != "" {
				cfg.VoicePool = append(cfg.VoicePool, v)
			}
		}
	}

	var err error
	cfg.CloneThreshold, err = floatenv("VODUB_CLONE_THRESHOLD", 60)
	if err != nil {
		return Config{}, err
	}

	concurrency, err := floatenv("VODUB_FETCH_CONCURRENCY", 2)
	if err != nil {
		return Config{}, err
	}
	cfg.FetchConcurrency = int(concurrency)

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func floatenv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
