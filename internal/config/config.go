package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. DOCSIFT_PORT.
const EnvPrefix = "DOCSIFT"

type Config struct {
	Port string `mapstructure:"port" validate:"required,numeric"`

	// Auth; empty disables bearer checks.
	APIKey string `mapstructure:"api_key"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json text"`

	// Worker pool
	WorkerCount        int `mapstructure:"worker_count" validate:"min=1"`
	MaxQueueSize       int `mapstructure:"max_queue_size" validate:"min=1"`
	MaxConcurrentEmbed int `mapstructure:"max_concurrent_embed" validate:"min=1"`

	// Upload limits
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"min=1"`

	// Job state
	JobTTL time.Duration `mapstructure:"job_ttl" validate:"min=1s"`

	// PDF
	PDFFallbackPdftotext bool `mapstructure:"pdf_fallback_pdftotext"`

	Classifier Classifier `mapstructure:"classifier"`
	Embedding  Embedding  `mapstructure:"embedding"`
	Ranking    Ranking    `mapstructure:"ranking"`
}

type Classifier struct {
	Type         string  `mapstructure:"type" validate:"oneof=artifact rules"`
	ArtifactPath string  `mapstructure:"artifact_path" validate:"required_if=Type artifact"`
	BodyFontSize float64 `mapstructure:"body_font_size" validate:"gt=0"`
}

type Embedding struct {
	Provider          string        `mapstructure:"provider" validate:"oneof=hash ollama openai gemini"`
	Model             string        `mapstructure:"model"`
	URL               string        `mapstructure:"url" validate:"omitempty,url"`
	APIKey            string        `mapstructure:"api_key"`
	Dimension         int           `mapstructure:"dimension" validate:"min=1"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"min=1ms"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	CachePath         string        `mapstructure:"cache_path"`
}

type Ranking struct {
	TopK            int `mapstructure:"top_k" validate:"min=1"`
	ExcerptMaxChars int `mapstructure:"excerpt_max_chars" validate:"min=1"`
}

// SetDefaults registers every key with its default so env overrides and
// Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8090")
	v.SetDefault("api_key", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("worker_count", 2)
	v.SetDefault("max_queue_size", 50)
	v.SetDefault("max_concurrent_embed", 8)
	v.SetDefault("max_upload_bytes", int64(50<<20))
	v.SetDefault("job_ttl", time.Hour)
	v.SetDefault("pdf_fallback_pdftotext", true)

	v.SetDefault("classifier.type", "artifact")
	v.SetDefault("classifier.artifact_path", "models/heading_classifier.json")
	v.SetDefault("classifier.body_font_size", 12.0)

	v.SetDefault("embedding.provider", "hash")
	v.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	v.SetDefault("embedding.url", "http://localhost:11434")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.timeout", 60*time.Second)
	v.SetDefault("embedding.requests_per_second", 20.0)
	v.SetDefault("embedding.cache_path", "")

	v.SetDefault("ranking.top_k", 5)
	v.SetDefault("ranking.excerpt_max_chars", 2000)
}

// New returns a viper instance with defaults and DOCSIFT_ env overrides.
// When file is non-empty it is read; a missing file is an error.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	return v, nil
}

// Load materializes and validates the merged configuration
// (flags > env > file > defaults).
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
