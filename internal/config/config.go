package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey   string
	DatabaseURL    string
	HTTPPort       string
	LogLevel       string
	JWTSecret      string
	SessionIdleTTL time.Duration
	HistoryLimit   int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:    getEnv("DATABASE_URL", "codeprep_assistant.db"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		SessionIdleTTL: time.Duration(getEnvAsInt("SESSION_IDLE_TTL_MINUTES", 30)) * time.Minute,
		HistoryLimit:   getEnvAsInt("SESSION_HISTORY_LIMIT", 50),
	}

	// A missing Gemini key is not fatal: the service runs with the
	// deterministic local completer (canned replies, keyword intents).
	if AppConfig.GeminiAPIKey == "" {
		log.Println("GEMINI_API_KEY not set, running in fallback mode without the completion API")
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
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
