package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	OpenAIKey      string
	OpenAIEndpoint string
	OpenAIModel    string
	Database       string
	UploadDir      string
	Addr           string
	LogLevel       string

	// Pipeline tuning. The stated defaults are starting points, not
	// invariants; every one of them is overridable per deployment.
	ChunkSize         int
	ChunkLookback     int
	Temperature       float64
	MaxOutputTokens   int
	MinCards          int
	GenerationTimeout time.Duration
}

// Load reads configuration from the environment, providing sensible defaults.
func Load() Config {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()
	cfg := Config{
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIEndpoint:    getEnv("OPENAI_API_ENDPOINT", "https://api.openai.com/v1"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		Database:          getEnv("DATABASE_PATH", "./data/flashgen.db"),
		UploadDir:         getEnv("UPLOAD_DIR", "./data/uploads"),
		Addr:              getEnv("ADDR", ":8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ChunkSize:         getEnvInt("CHUNK_SIZE", 800),
		ChunkLookback:     getEnvInt("CHUNK_LOOKBACK", 200),
		Temperature:       getEnvFloat("TEMPERATURE", 0.7),
		MaxOutputTokens:   getEnvInt("MAX_OUTPUT_TOKENS", 400),
		MinCards:          getEnvInt("MIN_CARDS", 10),
		GenerationTimeout: time.Duration(getEnvInt("GENERATION_TIMEOUT", 0)) * time.Second,
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("failed to ensure upload dir %s: %v", cfg.UploadDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		log.Fatalf("failed to ensure database dir %s: %v", cfg.Database, err)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}
