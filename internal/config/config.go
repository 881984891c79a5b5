package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// Persistence
	StoreDriver   string // postgres, mongo or memory
	DatabaseURL   string
	MongoURL      string
	MongoDatabase string
	RedisURL      string

	// Discord announcements (optional)
	DiscordToken     string
	DiscordChannelID string

	// Generation capability
	LLMProvider     string // anthropic or openai
	LLMModel        string
	LLMBaseURL      string
	AnthropicAPIKey string
	OpenAIAPIKey    string

	// Submission validation
	MinJustificationLength int

	Resolver ResolverConfig
}

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Generation providers
const (
	LLMProviderAnthropic = "anthropic"
	LLMProviderOpenAI    = "openai"
)

// Load reads the environment, then lets command line flags override it
func Load() *Config {
	config := FromEnv()
	envResolverFile := getEnvWithDefault("RESOLVER_CONFIG", "")
	resolverFile := envResolverFile

	// Command line flags override environment
	flag.StringVar(&config.Port, "port", config.Port, "Server port")
	flag.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level")
	flag.StringVar(&config.StoreDriver, "store", config.StoreDriver, "Store driver (postgres, mongo, memory)")
	flag.StringVar(&resolverFile, "resolver-config", resolverFile, "Path to a YAML resolver policy file")
	flag.Parse()

	// FromEnv has already merged the file named by the environment
	if resolverFile != envResolverFile {
		config.loadResolverFile(resolverFile)
	}
	return config
}

// FromEnv builds the configuration from environment variables only. Binaries
// that own their flag set (cobra, the seeder) use this instead of Load.
func FromEnv() *Config {
	config := &Config{
		Port:      getEnvWithDefault("PORT", "8080"),
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "json"),

		StoreDriver:   getEnvWithDefault("STORE_DRIVER", StoreDriverPostgres),
		DatabaseURL:   getEnvWithDefault("DATABASE_URL", ""),
		MongoURL:      getEnvWithDefault("MONGO_URL", ""),
		MongoDatabase: getEnvWithDefault("MONGO_DATABASE", "toolshed"),
		RedisURL:      getEnvWithDefault("REDIS_URL", ""),

		DiscordToken:     getEnvWithDefault("DISCORD_TOKEN", ""),
		DiscordChannelID: getEnvWithDefault("DISCORD_CHANNEL_ID", ""),

		LLMProvider:     getEnvWithDefault("LLM_PROVIDER", LLMProviderAnthropic),
		LLMModel:        getEnvWithDefault("LLM_MODEL", ""),
		LLMBaseURL:      getEnvWithDefault("LLM_BASE_URL", ""),
		AnthropicAPIKey: getEnvWithDefault("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnvWithDefault("OPENAI_API_KEY", ""),

		MinJustificationLength: getEnvInt("MIN_JUSTIFICATION_LENGTH", 10),

		Resolver: resolverFromEnv(),
	}

	config.loadResolverFile(getEnvWithDefault("RESOLVER_CONFIG", ""))
	return config
}

func (c *Config) loadResolverFile(path string) {
	if path == "" {
		return
	}
	if err := c.Resolver.MergeFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Ignoring resolver config %s: %v\n", path, err)
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// validateStore ensures the selected store driver has its connection string
func (c *Config) validateStore() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("environment variable DATABASE_URL is required for the postgres store")
		}
	case StoreDriverMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("environment variable MONGO_URL is required for the mongo store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// validateLLM ensures the selected generation provider has credentials
func (c *Config) validateLLM() error {
	switch strings.ToLower(c.LLMProvider) {
	case LLMProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("environment variable ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case LLMProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("environment variable OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}

// ValidateForAPI ensures all required fields for the API service are present
func (c *Config) ValidateForAPI() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return c.Resolver.Validate()
}

// ValidateForWorker ensures all required fields for the worker service are present
func (c *Config) ValidateForWorker() error {
	if c.RedisURL == "" {
		return fmt.Errorf("environment variable REDIS_URL is required for the worker")
	}
	if c.StoreDriver == StoreDriverMemory {
		return fmt.Errorf("the worker cannot share an in-memory store with the API")
	}
	return c.ValidateForAPI()
}

// ValidateForResolve ensures a one-off resolution can reach the generation provider
func (c *Config) ValidateForResolve() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	return c.Resolver.Validate()
}

// HasDiscord reports whether new-tool announcements are configured
func (c *Config) HasDiscord() bool {
	return c.DiscordToken != "" && c.DiscordChannelID != ""
}
