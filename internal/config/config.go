package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the ArtScan server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Vision   VisionConfig
	Music    MusicConfig
	Speech   SpeechConfig
	Storage  StorageConfig
	Wiki     WikiConfig
	LiveKit  LiveKitConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port int
	Env  string
	// WriteTimeout must outlast the music poll ceiling because analyze is synchronous.
	WriteTimeout   time.Duration
	AllowedOrigins []string
	// PublicURL prefixes links to media served by this process.
	PublicURL string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	URL       string
	RecordTTL time.Duration
}

type VisionConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

type MusicConfig struct {
	BaseURL         string
	APIKey          string
	Model           string
	CallbackURL     string
	PollInterval    time.Duration
	MaxPollAttempts int
	AudioWeight     float64
	StatusTTL       time.Duration
	RequestTimeout  time.Duration
}

type SpeechConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Voice   string
	Timeout time.Duration
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type WikiConfig struct {
	Lang      string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

type LiveKitConfig struct {
	URL       string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

type AuthConfig struct {
	// APIKeyHashes are bcrypt hashes of accepted API keys. Empty disables auth.
	APIKeyHashes      []string
	RequestsPerMinute int
}

var validProviders = map[string]bool{
	"navigator": true,
	"openai":    true,
	"ollama":    true,
	"vllm":      true,
}

// hostedProviders need an API key.
var hostedProviders = map[string]bool{
	"navigator": true,
	"openai":    true,
}

var defaultBaseURLs = map[string]string{
	"navigator": "https://api.ai.it.ufl.edu/v1",
	"openai":    "https://api.openai.com/v1",
	"ollama":    "http://localhost:11434/v1",
	"vllm":      "http://localhost:8000/v1",
}

var defaultModels = map[string]string{
	"navigator": "mistral-small-3.1",
	"openai":    "gpt-4o-mini",
	"ollama":    "llava",
	"vllm":      "",
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration without validating it. The CLI uses it for
// commands that only need part of the stack.
func FromEnv() *Config {
	provider := envString("VISION_PROVIDER", "navigator")

	return &Config{
		Server: ServerConfig{
			Port:           envInt("ART_PORT", 8080),
			Env:            envString("ART_ENV", "development"),
			WriteTimeout:   envDuration("ART_WRITE_TIMEOUT", 11*time.Minute),
			AllowedOrigins: envList("ART_ALLOWED_ORIGINS", []string{"*"}),
			PublicURL:      envString("ART_PUBLIC_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: envDuration("DATABASE_CONN_MAX_IDLE_TIME", 2*time.Minute),
		},
		Redis: RedisConfig{
			URL:       os.Getenv("REDIS_URL"),
			RecordTTL: envDuration("REDIS_RECORD_TTL", 24*time.Hour),
		},
		Vision: VisionConfig{
			Provider: provider,
			BaseURL:  envString("VISION_BASE_URL", defaultBaseURLs[provider]),
			APIKey:   os.Getenv("VISION_API_KEY"),
			Model:    envString("VISION_MODEL", defaultModels[provider]),
			Timeout:  envDurationSecs("VISION_TIMEOUT_SECS", 60*time.Second),
		},
		Music: MusicConfig{
			BaseURL:         envString("MUSIC_BASE_URL", "https://api.sunoapi.org"),
			APIKey:          os.Getenv("MUSIC_API_KEY"),
			Model:           envString("MUSIC_MODEL", "V4_5"),
			CallbackURL:     envString("MUSIC_CALLBACK_URL", "https://webhook.site/#!/view/00000000-0000-0000-0000-000000000000"),
			PollInterval:    envDuration("MUSIC_POLL_INTERVAL", 5*time.Second),
			MaxPollAttempts: envInt("MUSIC_MAX_POLL_ATTEMPTS", 120),
			AudioWeight:     envFloat("MUSIC_AUDIO_WEIGHT", 0.65),
			StatusTTL:       envDuration("MUSIC_STATUS_TTL", 30*time.Minute),
			RequestTimeout:  envDuration("MUSIC_REQUEST_TIMEOUT", 30*time.Second),
		},
		Speech: SpeechConfig{
			BaseURL: envString("SPEECH_BASE_URL", "https://api.elevenlabs.io/v1"),
			APIKey:  os.Getenv("SPEECH_API_KEY"),
			Model:   envString("SPEECH_MODEL", "eleven_turbo_v2_5"),
			Voice:   envString("SPEECH_VOICE", "Rachel"),
			Timeout: envDuration("SPEECH_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:    envString("STORAGE_BUCKET", "artscan"),
			Region:    envString("STORAGE_REGION", "us-east-1"),
			UseSSL:    envBool("STORAGE_USE_SSL", false),
		},
		Wiki: WikiConfig{
			Lang:      envString("WIKI_LANG", "en"),
			Timeout:   envDuration("WIKI_TIMEOUT", 10*time.Second),
			CacheSize: envInt("WIKI_CACHE_SIZE", 256),
			CacheTTL:  envDuration("WIKI_CACHE_TTL", time.Hour),
		},
		LiveKit: LiveKitConfig{
			URL:       os.Getenv("LIVEKIT_URL"),
			APIKey:    os.Getenv("LIVEKIT_API_KEY"),
			APISecret: os.Getenv("LIVEKIT_API_SECRET"),
			TokenTTL:  envDuration("LIVEKIT_TOKEN_TTL", 6*time.Hour),
		},
		Auth: AuthConfig{
			APIKeyHashes:      envList("AUTH_API_KEY_HASHES", nil),
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validProviders[c.Vision.Provider] {
		return fmt.Errorf("VISION_PROVIDER must be one of navigator, openai, ollama, vllm; got %q", c.Vision.Provider)
	}
	if hostedProviders[c.Vision.Provider] && c.Vision.APIKey == "" {
		return fmt.Errorf("VISION_API_KEY is required when VISION_PROVIDER is %s", c.Vision.Provider)
	}
	if err := requireHTTPURL("VISION_BASE_URL", c.Vision.BaseURL); err != nil {
		return err
	}
	if c.Vision.Model == "" {
		return fmt.Errorf("VISION_MODEL is required when VISION_PROVIDER is %s", c.Vision.Provider)
	}

	if err := requireHTTPURL("MUSIC_BASE_URL", c.Music.BaseURL); err != nil {
		return err
	}
	if c.Music.MaxPollAttempts <= 0 {
		return fmt.Errorf("MUSIC_MAX_POLL_ATTEMPTS must be positive, got %d", c.Music.MaxPollAttempts)
	}
	if c.Music.PollInterval <= 0 {
		return fmt.Errorf("MUSIC_POLL_INTERVAL must be positive, got %s", c.Music.PollInterval)
	}

	if err := requireHTTPURL("SPEECH_BASE_URL", c.Speech.BaseURL); err != nil {
		return err
	}

	if (c.LiveKit.APIKey == "") != (c.LiveKit.APISecret == "") {
		return fmt.Errorf("LIVEKIT_API_KEY and LIVEKIT_API_SECRET must be set together")
	}

	return nil
}

func requireHTTPURL(key, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", key)
	}
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		return fmt.Errorf("%s must start with http:// or https://, got %q", key, v)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

// envList splits a comma-separated value, dropping empty entries.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
