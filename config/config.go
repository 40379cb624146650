package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	NatsURL     string

	WorkspaceDir  string
	SandboxImage  string
	ContainerName string
	ExecTimeout   time.Duration
	MemoryLimitMB int64
	NanoCPUs      int64

	SourceURL string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	LogUploadURL   string
	LogSourceToken string
}

func LoadConfig() Config {
	err := godotenv.Load(".env")
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	return Config{
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENVIRONMENT", "production"),
		NatsURL:     getEnv("NATSURL", ""),

		WorkspaceDir:  getEnv("WORKSPACEDIR", "workspace"),
		SandboxImage:  getEnv("SANDBOXIMAGE", "data-analyst-image"),
		ContainerName: getEnv("CONTAINERNAME", "data-analyst-agent-sandbox"),
		ExecTimeout:   time.Duration(getEnvInt("EXECTIMEOUTSECONDS", 120)) * time.Second,
		MemoryLimitMB: int64(getEnvInt("MEMORYLIMITMB", 600)),
		NanoCPUs:      int64(getEnvInt("NANOCPUS", 1000000000)),

		SourceURL: getEnv("SOURCEURL", "https://en.wikipedia.org/wiki/List_of_highest-grossing_films"),

		LLMBaseURL: getEnv("LLMBASEURL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		LLMAPIKey:  getEnv("LLMAPIKEY", ""),
		LLMModel:   getEnv("LLMMODEL", "gemini-1.5-flash-latest"),

		LogUploadURL:   getEnv("LOGUPLOADURL", ""),
		LogSourceToken: getEnv("LOGSOURCETOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
