package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"

	TTSProviderOpenAI     = "openai"
	TTSProviderElevenLabs = "elevenlabs"
	TTSProviderCartesia   = "cartesia"
)

type Config struct {
	// Server
	APIPort            string `yaml:"api_port"`
	WorkerEnabled      bool   `yaml:"worker_enabled"`
	BackendAPIKey      string `yaml:"backend_api_key"`      // empty = no auth, dev mode
	CorsAllowedOrigins string `yaml:"cors_allowed_origins"` // comma-separated, empty = *

	// Database
	DatabaseURL string `yaml:"database_url"`

	// Redis
	RedisURL string `yaml:"redis_url"`

	// Supabase
	SupabaseURL           string `yaml:"supabase_url"`
	SupabaseServiceKey    string `yaml:"supabase_service_key"`
	SupabaseStorageBucket string `yaml:"supabase_storage_bucket"`

	// Script writer
	LLMProvider   string `yaml:"llm_provider"`
	LLMModel      string `yaml:"llm_model"`
	OpenAIKey     string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	GeminiKey     string `yaml:"gemini_api_key"`

	// Speech. An empty TTSProvider picks ElevenLabs, then Cartesia, by
	// whichever key is set; with neither, audio is disabled.
	TTSProvider   string `yaml:"tts_provider"`
	TTSModel      string `yaml:"tts_model"`
	ElevenLabsKey string `yaml:"elevenlabs_api_key"`
	CartesiaKey   string `yaml:"cartesia_api_key"`
	CartesiaURL   string `yaml:"cartesia_api_url"`
	Speaker1Voice string `yaml:"speaker1_voice"`
	Speaker2Voice string `yaml:"speaker2_voice"`

	// Audio
	SampleRate   int    `yaml:"sample_rate"`
	CacheDir     string `yaml:"cache_dir"` // empty = ~/.podcastgen_cache
	DisableCache bool   `yaml:"disable_cache"`
	ExportMP3    bool   `yaml:"export_mp3"`
	TempDir      string `yaml:"temp_dir"`

	// Web scraping
	FirecrawlKey string `yaml:"firecrawl_api_key"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Worker
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`
}

func defaults() *Config {
	return &Config{
		APIPort:               "8080",
		WorkerEnabled:         true,
		RedisURL:              "redis://localhost:6379",
		SupabaseStorageBucket: "podcasts",
		LLMProvider:           LLMProviderOpenAI,
		CartesiaURL:           "https://api.cartesia.ai",
		SampleRate:            24000,
		TempDir:               os.TempDir(),
		LogLevel:              "info",
		LogFormat:             "json",
		MaxConcurrentJobs:     5,
	}
}

// Load reads configuration. Values come from the defaults, then the YAML file
// at path (or $CONFIG_FILE) when one is given, then the environment and any
// .env file. Load does not validate; call ValidateServer or ValidateCLI.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)
	cfg.WorkerEnabled = getEnvBool("WORKER_ENABLED", cfg.WorkerEnabled)
	cfg.BackendAPIKey = getEnv("BACKEND_API_KEY", cfg.BackendAPIKey)
	cfg.CorsAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CorsAllowedOrigins)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.SupabaseURL = getEnv("SUPABASE_URL", cfg.SupabaseURL)
	cfg.SupabaseServiceKey = getEnv("SUPABASE_SERVICE_KEY", cfg.SupabaseServiceKey)
	cfg.SupabaseStorageBucket = getEnv("SUPABASE_STORAGE_BUCKET", cfg.SupabaseStorageBucket)
	cfg.LLMProvider = getEnv("LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.GeminiKey = getEnv("GEMINI_API_KEY", cfg.GeminiKey)
	cfg.TTSProvider = getEnv("TTS_PROVIDER", cfg.TTSProvider)
	cfg.TTSModel = getEnv("TTS_MODEL", cfg.TTSModel)
	cfg.ElevenLabsKey = getEnv("ELEVENLABS_API_KEY", cfg.ElevenLabsKey)
	cfg.CartesiaKey = getEnv("CARTESIA_API_KEY", cfg.CartesiaKey)
	cfg.CartesiaURL = getEnv("CARTESIA_API_URL", cfg.CartesiaURL)
	cfg.Speaker1Voice = getEnv("SPEAKER1_VOICE", cfg.Speaker1Voice)
	cfg.Speaker2Voice = getEnv("SPEAKER2_VOICE", cfg.Speaker2Voice)
	cfg.SampleRate = getEnvInt("SAMPLE_RATE", cfg.SampleRate)
	cfg.CacheDir = getEnv("PODCASTGEN_CACHE_DIR", cfg.CacheDir)
	cfg.DisableCache = getEnvBool("DISABLE_CACHE", cfg.DisableCache)
	cfg.ExportMP3 = getEnvBool("EXPORT_MP3", cfg.ExportMP3)
	cfg.TempDir = getEnv("TEMP_DIR", cfg.TempDir)
	cfg.FirecrawlKey = getEnv("FIRECRAWL_API_KEY", cfg.FirecrawlKey)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.MaxConcurrentJobs = getEnvInt("MAX_CONCURRENT_JOBS", cfg.MaxConcurrentJobs)

	return cfg, nil
}

// LLMKey returns the API key for the configured script writer.
func (c *Config) LLMKey() string {
	if c.LLMProvider == LLMProviderGemini {
		return c.GeminiKey
	}
	return c.OpenAIKey
}

// ResolvedTTSProvider returns the speech provider to use, or "" when audio
// is disabled.
func (c *Config) ResolvedTTSProvider() string {
	if c.TTSProvider != "" {
		return c.TTSProvider
	}
	switch {
	case c.ElevenLabsKey != "":
		return TTSProviderElevenLabs
	case c.CartesiaKey != "":
		return TTSProviderCartesia
	default:
		return ""
	}
}

// TTSKey returns the API key for the resolved speech provider.
func (c *Config) TTSKey() string {
	switch c.ResolvedTTSProvider() {
	case TTSProviderOpenAI:
		return c.OpenAIKey
	case TTSProviderElevenLabs:
		return c.ElevenLabsKey
	case TTSProviderCartesia:
		return c.CartesiaKey
	default:
		return ""
	}
}

// TTSBaseURL returns the endpoint override for the resolved speech provider.
func (c *Config) TTSBaseURL() string {
	switch c.ResolvedTTSProvider() {
	case TTSProviderOpenAI:
		return c.OpenAIBaseURL
	case TTSProviderCartesia:
		return c.CartesiaURL
	default:
		return ""
	}
}

// AudioEnabled reports whether a speech provider is configured.
func (c *Config) AudioEnabled() bool {
	return c.ResolvedTTSProvider() != ""
}

// ValidateCLI checks what the local command line needs.
func (c *Config) ValidateCLI() error {
	switch c.LLMProvider {
	case LLMProviderOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case LLMProviderGemini:
		if c.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.TTSProvider {
	case "", TTSProviderOpenAI, TTSProviderElevenLabs, TTSProviderCartesia:
	default:
		return fmt.Errorf("unknown TTS_PROVIDER %q", c.TTSProvider)
	}
	if c.TTSProvider != "" && c.TTSKey() == "" {
		return fmt.Errorf("TTS_PROVIDER=%s is set but its API key is missing", c.TTSProvider)
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive")
	}
	return nil
}

// ValidateServer checks what the API and worker need.
func (c *Config) ValidateServer() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be positive")
	}

	return c.ValidateCLI()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
