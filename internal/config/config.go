package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Engine   EngineConfig
	Ehr      EHRConfig
	Vapi     VapiConfig
	Otel     OtelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider   string // "gemini", "ollama" or "none"
	GeminiAPIKey  string
	GeminiModel   string
	OllamaBaseURL string
	OllamaModel   string
	RemoteTimeout time.Duration
	EntityAPIURL  string
}

type EngineConfig struct {
	PollInterval         time.Duration
	SpeechRestartDelay   time.Duration
	StrictPatientContext bool
	AllowedEHRHosts      []string
}

type EHRConfig struct {
	BaseURL string
	APIKey  string
}

type VapiConfig struct {
	APIKey        string
	PhoneNumberID string
	AssistantID   string
}

type OtelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("PORT", "3001"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE", "logs/temporalos.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "gemini"),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),
			RemoteTimeout: getEnvAsDuration("REMOTE_TIMEOUT", 10*time.Second),
			EntityAPIURL:  getEnv("ENTITY_API_URL", ""),
		},
		Engine: EngineConfig{
			PollInterval:         getEnvAsDuration("POLL_INTERVAL", 3*time.Second),
			SpeechRestartDelay:   getEnvAsDuration("SPEECH_RESTART_DELAY", 50*time.Millisecond),
			StrictPatientContext: getEnvAsBool("STRICT_PATIENT_CONTEXT", false),
			AllowedEHRHosts:      getEnvAsList("ALLOWED_EHR_HOSTS", nil),
		},
		Ehr: EHRConfig{
			BaseURL: getEnv("EHR_BASE_URL", ""),
			APIKey:  getEnv("EHR_API_KEY", ""),
		},
		Vapi: VapiConfig{
			APIKey:        getEnv("VAPI_API_KEY", ""),
			PhoneNumberID: getEnv("VAPI_PHONE_NUMBER_ID", ""),
			AssistantID:   getEnv("VAPI_ASSISTANT_ID", ""),
		},
		Otel: OtelConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

// LLMModel is the model name for the selected provider.
func (c AIConfig) LLMModel() string {
	if c.LLMProvider == "ollama" {
		return c.OllamaModel
	}
	return c.GeminiModel
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("3s") or bare milliseconds ("3000").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	if ms := getEnvAsInt(key, 0); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strings.TrimSpace(strValue) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
