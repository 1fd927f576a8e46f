package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const devJWTSecret = "dev-secret-change-me"

// EnvDev is the only environment allowed to run on the built-in JWT secret.
const EnvDev = "dev"

type Config struct {
	Env         string   `yaml:"env"`
	HTTPAddr    string   `yaml:"http_addr"`
	JWTSecret   string   `yaml:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins"`
	TimeZone    string   `yaml:"time_zone"`

	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`

	OpenAIKey   string `yaml:"openai_api_key"`
	OpenAIModel string `yaml:"openai_model"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	Assistant AssistantConfig `yaml:"assistant"`
}

// AssistantConfig tunes the chat pipeline. An empty GeminiKey means every
// reply comes from the local fallback.
type AssistantConfig struct {
	GeminiKey      string        `yaml:"gemini_key"`
	GeminiModel    string        `yaml:"gemini_model"`
	GeminiBaseURL  string        `yaml:"gemini_base_url"`
	MinInterval    time.Duration `yaml:"min_interval"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	CacheSize      int           `yaml:"cache_size"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

func defaults() *Config {
	return &Config{
		Env:         EnvDev,
		HTTPAddr:    ":8080",
		CORSOrigins: []string{"*"},
		TimeZone:    "Local",
		DBPort:      5432,
		OpenAIModel: "gpt-4o-mini",
		LogLevel:    "info",
		Assistant: AssistantConfig{
			GeminiModel:    "gemma-3-27b-it",
			GeminiBaseURL:  "https://generativelanguage.googleapis.com/v1beta",
			MinInterval:    500 * time.Millisecond,
			CacheTTL:       time.Minute,
			CacheSize:      512,
			MaxAttempts:    3,
			InitialBackoff: time.Second,
		},
	}
}

// Load builds the config from defaults, the optional CONFIG_FILE overlay and
// finally the environment.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("APP_ENV", &c.Env)
	str("HTTP_ADDR", &c.HTTPAddr)
	str("JWT_SECRET", &c.JWTSecret)
	str("TZ_NAME", &c.TimeZone)
	str("DB_HOST", &c.DBHost)
	str("DB_USER", &c.DBUser)
	str("DB_PASSWORD", &c.DBPassword)
	str("DB_NAME", &c.DBName)
	str("OPENAI_API_KEY", &c.OpenAIKey)
	str("OPENAI_MODEL", &c.OpenAIModel)
	str("LOG_LEVEL", &c.LogLevel)
	str("GEMINI_KEY", &c.Assistant.GeminiKey)
	str("GEMINI_MODEL", &c.Assistant.GeminiModel)
	str("GEMINI_BASE_URL", &c.Assistant.GeminiBaseURL)

	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSOrigins = origins
	}

	// DB_PORT falls back to the default on garbage, like it always did
	if v := getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.DBPort = port
		}
	}

	if v := getenv("LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.LogPretty = b
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"ASSISTANT_MIN_INTERVAL", &c.Assistant.MinInterval},
		{"ASSISTANT_CACHE_TTL", &c.Assistant.CacheTTL},
		{"ASSISTANT_INITIAL_BACKOFF", &c.Assistant.InitialBackoff},
	}
	for _, d := range durations {
		v := getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"ASSISTANT_CACHE_SIZE", &c.Assistant.CacheSize},
		{"ASSISTANT_MAX_ATTEMPTS", &c.Assistant.MaxAttempts},
	}
	for _, n := range ints {
		v := getenv(n.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", n.key, err)
		}
		*n.dst = parsed
	}

	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" && c.Env != EnvDev {
		errs = append(errs, fmt.Errorf("jwt_secret is required when env is %q", c.Env))
	}
	if c.Assistant.MinInterval < 0 {
		errs = append(errs, errors.New("assistant.min_interval must not be negative"))
	}
	if c.Assistant.CacheTTL <= 0 {
		errs = append(errs, errors.New("assistant.cache_ttl must be positive"))
	}
	if c.Assistant.CacheSize <= 0 {
		errs = append(errs, errors.New("assistant.cache_size must be positive"))
	}
	if c.Assistant.MaxAttempts <= 0 {
		errs = append(errs, errors.New("assistant.max_attempts must be positive"))
	}
	if c.Assistant.InitialBackoff < 0 {
		errs = append(errs, errors.New("assistant.initial_backoff must not be negative"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves TimeZone; day boundaries for streaks and "today" use it.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// Secret returns the JWT signing key and whether it is the built-in dev value.
// Validate rejects the dev value outside EnvDev.
func (c *Config) Secret() ([]byte, bool) {
	if c.JWTSecret == "" {
		return []byte(devJWTSecret), true
	}
	return []byte(c.JWTSecret), false
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}
