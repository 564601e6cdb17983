package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Log      LogConfig
	Ingest   IngestConfig
	Models   ModelsConfig
	Gemini   GeminiConfig
	Pipeline PipelineConfig
	Worker   WorkerConfig
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

type IngestConfig struct {
	// MaxFileSize is enforced before any parsing happens.
	MaxFileSize int64
	// MinTextLength is the digital-text floor under which the OCR
	// fallback runs for PDFs, and the terminal INSUFFICIENT_TEXT floor.
	MinTextLength int
	OCRLanguage   string
	OCRDPI        int
	ScratchDir    string
}

type ModelsConfig struct {
	// NEREndpoint and EmbedEndpoint address the local inference sidecar.
	NEREndpoint   string
	EmbedEndpoint string
	Timeout       time.Duration
	// NERMaxChars caps text sent to the sequence-labeling model per chunk.
	NERMaxChars int
	// EmbedWindow and EmbedOverlap shape the overlapping chunks fed to
	// the embedding model for long documents.
	EmbedWindow  int
	EmbedOverlap int
	// ConfidenceThreshold filters model entities post-hoc.
	ConfidenceThreshold float64
}

type GeminiConfig struct {
	APIKey          string
	Model           string
	MaxRetries      int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

type PipelineConfig struct {
	// Deadline is the global end-to-end budget per request.
	Deadline time.Duration
	// FeedbackBudget is the minimum remaining budget required to attempt
	// the generative call; below it the deterministic fallback is used.
	FeedbackBudget time.Duration
	// MinResumeChars rejects direct text input too short to analyze.
	MinResumeChars int
}

type WorkerConfig struct {
	Concurrency int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Log: LogConfig{
			JSON:  getEnvAsBool("LOG_JSON", false),
			Debug: getEnvAsBool("LOG_DEBUG", false),
		},
		Ingest: IngestConfig{
			MaxFileSize:   getEnvAsInt64("MAX_FILE_SIZE", 10485760),
			MinTextLength: getEnvAsInt("MIN_TEXT_LENGTH", 200),
			OCRLanguage:   getEnv("OCR_LANGUAGE", "eng"),
			OCRDPI:        getEnvAsInt("OCR_DPI", 300),
			ScratchDir:    getEnv("SCRATCH_DIR", os.TempDir()),
		},
		Models: ModelsConfig{
			NEREndpoint:         getEnv("NER_ENDPOINT", "http://localhost:8001"),
			EmbedEndpoint:       getEnv("EMBED_ENDPOINT", "http://localhost:8002"),
			Timeout:             getEnvAsDuration("MODEL_TIMEOUT", "15s"),
			NERMaxChars:         getEnvAsInt("NER_MAX_CHARS", 5000),
			EmbedWindow:         getEnvAsInt("EMBED_WINDOW", 1500),
			EmbedOverlap:        getEnvAsInt("EMBED_OVERLAP", 200),
			ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.80),
		},
		Gemini: GeminiConfig{
			APIKey:          getEnv("GEMINI_API_KEY", ""),
			Model:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			MaxRetries:      getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			InitialBackoff:  getEnvAsDuration("RETRY_INITIAL_BACKOFF", "4s"),
			MaxBackoff:      getEnvAsDuration("RETRY_MAX_BACKOFF", "10s"),
			BreakerFailures: getEnvAsInt("BREAKER_FAILURES", 5),
			BreakerCooldown: getEnvAsDuration("BREAKER_COOLDOWN", "60s"),
		},
		Pipeline: PipelineConfig{
			Deadline:       getEnvAsDuration("PIPELINE_DEADLINE", "30s"),
			FeedbackBudget: getEnvAsDuration("FEEDBACK_BUDGET", "5s"),
			MinResumeChars: getEnvAsInt("MIN_RESUME_CHARS", 50),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 3),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
