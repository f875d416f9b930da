package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Gemini   GeminiConfig
}

type ServerConfig struct {
	HTTPPort      string
	PublicBaseURL string
}

type DBConfig struct {
	Driver     string // "sqlite" or "postgres"
	SQLitePath string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	TimeoutSec int
	// Optional path to a clustering prompt template overriding the built-in one.
	PromptPath string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:      getEnv("HTTP_PORT", "3000"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		},
		DB: DBConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			SQLitePath: getEnv("SQLITE_PATH", "quiz.db"),
			Host:       getEnv("DB_HOST", "postgres"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "classquiz"),
			Password:   getEnv("DB_PASSWORD", "classquiz_password"),
			DBName:     getEnv("DB_NAME", "classquiz"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "redis"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", "rabbitmq"),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			BaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			TimeoutSec: getEnvAsInt("GEMINI_TIMEOUT_SEC", 30),
			PromptPath: getEnv("CLUSTER_PROMPT_FILE", ""),
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
