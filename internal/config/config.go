// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	EnvName  string         `yaml:"envName"`
	LogLevel string         `yaml:"logLevel"`
	Server   ServerConfig   `yaml:"server"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Blob     BlobConfig     `yaml:"blob"`
	Worker   WorkerConfig   `yaml:"worker"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Amadeus  AmadeusConfig  `yaml:"amadeus"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          string `yaml:"port"`
	ReadTimeout   int    `yaml:"readTimeout"`
	WriteTimeout  int    `yaml:"writeTimeout"`
	APIKey        string `yaml:"-"`
	SigningSecret string `yaml:"-"`
	BaseURL       string `yaml:"baseUrl"`
}

// RabbitMQConfig holds RabbitMQ configuration
type RabbitMQConfig struct {
	URL          string `yaml:"url"`
	Exchange     string `yaml:"exchange"`
	TasksQueue   string `yaml:"tasksQueue"`
	ExchangeType string `yaml:"exchangeType"`
}

// BlobConfig holds result store configuration
type BlobConfig struct {
	Path string `yaml:"path"`
	Name string `yaml:"name"`
}

// WorkerConfig holds executor configuration
type WorkerConfig struct {
	MaxWorkers      int `yaml:"maxWorkers"`
	ShutdownTimeout int `yaml:"shutdownTimeout"`
}

// JobsConfig holds result lifecycle configuration. ResultsExpire doubles as
// the garbage-collection TTL and the presigned URL lifetime, in seconds.
type JobsConfig struct {
	ResultsExpire int `yaml:"resultsExpire"`
	SweepInterval int `yaml:"sweepInterval"`
}

// AmadeusConfig holds the external flight search API configuration
type AmadeusConfig struct {
	URL                  string `yaml:"url"`
	APIKey               string `yaml:"-"`
	APISecret            string `yaml:"-"`
	MaxRequestsAtOnce    int    `yaml:"maxRequestsAtOnce"`
	MaxRequestsPerSecond int    `yaml:"maxRequestsPerSecond"`
	RequestTimeout       int    `yaml:"requestTimeout"`
}

// Default configuration values
const (
	DefaultServerPort         = "8080"
	DefaultServerReadTimeout  = 30
	DefaultServerWriteTimeout = 30
	DefaultServerBaseURL      = "http://localhost:8080"
	DefaultMaxWorkers         = 10
	DefaultShutdownTimeout    = 30
	DefaultBlobPath           = "./data/results"
	DefaultBlobName           = "skyhub-results"
	DefaultRabbitMQExchange   = "skyhub"
	DefaultTasksQueue         = "skyhub.tasks"
	DefaultExchangeType       = "direct"
	DefaultResultsExpire      = 24 * 3600
	DefaultSweepInterval      = 6 * 3600
	DefaultAmadeusURL         = "https://travel.api.amadeus.com"
	DefaultAmadeusAtOnce      = 70
	DefaultAmadeusPerSecond   = 70
	DefaultAmadeusReqTimeout  = 10
	DefaultLogLevel           = "info"
	DefaultEnvName            = "local"
)

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// Load creates a new configuration from the YAML file overlaid with environment variables
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Check mandatory environment variables
	rabbitmqURL := os.Getenv("SKYHUB_RABBITMQ_URL")
	if rabbitmqURL == "" {
		return nil, fmt.Errorf("SKYHUB_RABBITMQ_URL environment variable is required")
	}

	apiKey := os.Getenv("SKYHUB_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("SKYHUB_API_KEY environment variable is required")
	}

	config.EnvName = getEnv("SKYHUB_ENV_NAME", DefaultEnvName)
	config.LogLevel = getEnv("SKYHUB_LOG_LEVEL", DefaultLogLevel)

	config.Server = ServerConfig{
		Port:         getEnv("SKYHUB_SERVER_PORT", DefaultServerPort),
		ReadTimeout:  getEnvInt("SKYHUB_SERVER_READ_TIMEOUT", DefaultServerReadTimeout),
		WriteTimeout: getEnvInt("SKYHUB_SERVER_WRITE_TIMEOUT", DefaultServerWriteTimeout),
		APIKey:       apiKey,
		// The signing secret falls back to the API key so single-key
		// deployments need only one credential.
		SigningSecret: getEnv("SKYHUB_SIGNING_SECRET", apiKey),
		BaseURL:       getEnv("SKYHUB_SERVER_BASE_URL", DefaultServerBaseURL),
	}

	config.RabbitMQ = RabbitMQConfig{
		URL:          rabbitmqURL,
		Exchange:     getEnv("SKYHUB_RABBITMQ_EXCHANGE", DefaultRabbitMQExchange),
		TasksQueue:   getEnv("SKYHUB_RABBITMQ_TASKS_QUEUE", DefaultTasksQueue),
		ExchangeType: getEnv("SKYHUB_RABBITMQ_EXCHANGE_TYPE", DefaultExchangeType),
	}

	config.Blob = BlobConfig{
		Path: getEnv("SKYHUB_BLOB_PATH", DefaultBlobPath),
		Name: getEnv("SKYHUB_BLOB_NAME", DefaultBlobName),
	}

	config.Worker = WorkerConfig{
		MaxWorkers:      getEnvInt("SKYHUB_WORKER_MAX_WORKERS", DefaultMaxWorkers),
		ShutdownTimeout: getEnvInt("SKYHUB_WORKER_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
	}

	config.Jobs = JobsConfig{
		ResultsExpire: getEnvInt("SKYHUB_JOBS_RESULTS_EXPIRE", DefaultResultsExpire),
		SweepInterval: getEnvInt("SKYHUB_JOBS_SWEEP_INTERVAL", DefaultSweepInterval),
	}

	config.Amadeus = AmadeusConfig{
		URL:                  getEnv("SKYHUB_AMADEUS_API_URL", DefaultAmadeusURL),
		APIKey:               os.Getenv("SKYHUB_AMADEUS_API_KEY"),
		APISecret:            os.Getenv("SKYHUB_AMADEUS_API_SECRET"),
		MaxRequestsAtOnce:    getEnvInt("SKYHUB_AMADEUS_MAX_REQUESTS_AT_ONCE", DefaultAmadeusAtOnce),
		MaxRequestsPerSecond: getEnvInt("SKYHUB_AMADEUS_MAX_REQUESTS_PER_SECOND", DefaultAmadeusPerSecond),
		RequestTimeout:       getEnvInt("SKYHUB_AMADEUS_REQUEST_TIMEOUT", DefaultAmadeusReqTimeout),
	}

	return &config, nil
}
