package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the dualmind system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Patterns  PatternsConfig  `mapstructure:"patterns"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Databases DatabasesConfig `mapstructure:"databases"`
	Tools     ToolsConfig     `mapstructure:"tools"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	DataDir        string        `mapstructure:"data_dir"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig contains LLM provider configuration
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai-compatible
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PlannerConfig contains planning and critique policy constants.
// Thresholds are tunable operating points, not algorithmic truths.
type PlannerConfig struct {
	ApprovalThreshold  int `mapstructure:"approval_threshold"`
	RejectionThreshold int `mapstructure:"rejection_threshold"`
	MaxIterations      int `mapstructure:"max_iterations"`
	MaxSteps           int `mapstructure:"max_steps"`
}

// EngineConfig contains execution engine settings
type EngineConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// PatternsConfig contains pattern learning settings
type PatternsConfig struct {
	Backend             string  `mapstructure:"backend"` // memory or postgres
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	SuccessRate         float64 `mapstructure:"success_rate"`
	MatchLimit          int     `mapstructure:"match_limit"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"` // standalone listener for CLI runs; 0 disables
}

// DatabasesConfig contains datastore connection settings
type DatabasesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ToolsConfig contains per-tool settings and API keys
type ToolsConfig struct {
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	WebSearch WebSearchConfig `mapstructure:"web_search"`
	News      NewsConfig      `mapstructure:"news"`
	Arxiv     ArxivConfig     `mapstructure:"arxiv"`
	WebFetch  WebFetchConfig  `mapstructure:"web_fetch"`
	Report    ReportConfig    `mapstructure:"report"`
}

// WikipediaConfig contains Wikipedia API settings
type WikipediaConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// WebSearchConfig contains web search provider settings
type WebSearchConfig struct {
	Provider     string        `mapstructure:"provider"` // serper or brave
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// NewsConfig contains NewsAPI settings
type NewsConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ArxivConfig contains arXiv API settings
type ArxivConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// WebFetchConfig contains headless page fetch settings
type WebFetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// ReportConfig contains document writer settings
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dualmind")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DUALMIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; defaults plus env are enough for memory mode
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.default_timeout", "30s")
	v.SetDefault("general.data_dir", "./data")

	v.SetDefault("server.address", ":10010")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 1500)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.timeout", "45s")

	v.SetDefault("planner.approval_threshold", 70)
	v.SetDefault("planner.rejection_threshold", 50)
	v.SetDefault("planner.max_iterations", 2)
	v.SetDefault("planner.max_steps", 5)

	v.SetDefault("engine.max_retries", 2)
	v.SetDefault("engine.cache_ttl", "10m")

	v.SetDefault("patterns.backend", "memory")
	v.SetDefault("patterns.similarity_threshold", 0.7)
	v.SetDefault("patterns.success_rate", 0.8)
	v.SetDefault("patterns.match_limit", 5)

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.metrics_port", 9090)

	v.SetDefault("databases.postgres.sslmode", "disable")
	v.SetDefault("databases.redis.db", 0)

	v.SetDefault("tools.wikipedia.endpoint", "https://en.wikipedia.org/w/api.php")
	v.SetDefault("tools.wikipedia.timeout", "15s")
	v.SetDefault("tools.web_search.provider", "serper")
	v.SetDefault("tools.web_search.max_results", 5)
	v.SetDefault("tools.web_search.timeout", "15s")
	v.SetDefault("tools.news.endpoint", "https://newsapi.org/v2/everything")
	v.SetDefault("tools.news.max_results", 10)
	v.SetDefault("tools.news.timeout", "15s")
	v.SetDefault("tools.arxiv.endpoint", "http://export.arxiv.org/api/query")
	v.SetDefault("tools.arxiv.max_results", 5)
	v.SetDefault("tools.arxiv.timeout", "20s")
	v.SetDefault("tools.web_fetch.timeout", "15s")
	v.SetDefault("tools.web_fetch.max_chars", 20000)
	v.SetDefault("tools.report.output_dir", "./reports")
}

// overrideFromEnv maps well-known bare environment variables onto config
// keys so that API keys never have to live in config files.
func overrideFromEnv(v *viper.Viper) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		v.Set("llm.api_key", key)
	}
	if key := os.Getenv("SERPER_API_KEY"); key != "" {
		v.Set("tools.web_search.serper_api_key", key)
	}
	if key := os.Getenv("BRAVE_API_KEY"); key != "" {
		v.Set("tools.web_search.brave_api_key", key)
	}
	if key := os.Getenv("NEWSAPI_KEY"); key != "" {
		v.Set("tools.news.api_key", key)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Planner.MaxIterations < 0 {
		return fmt.Errorf("planner.max_iterations must be >= 0")
	}
	if cfg.Planner.ApprovalThreshold < 0 || cfg.Planner.ApprovalThreshold > 100 {
		return fmt.Errorf("planner.approval_threshold must be in [0,100]")
	}
	if cfg.Planner.RejectionThreshold < 0 || cfg.Planner.RejectionThreshold > cfg.Planner.ApprovalThreshold {
		return fmt.Errorf("planner.rejection_threshold must be in [0, approval_threshold]")
	}
	if cfg.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must be >= 0")
	}
	if cfg.Patterns.SimilarityThreshold < 0 || cfg.Patterns.SimilarityThreshold > 1 {
		return fmt.Errorf("patterns.similarity_threshold must be in [0,1]")
	}
	switch cfg.Patterns.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("patterns.backend must be memory or postgres")
	}
	return nil
}

// PostgresDSN builds a lib/pq connection string from the postgres section.
func (d DatabasesConfig) PostgresDSN() (string, error) {
	pg := d.Postgres
	if pg.URL != "" {
		return pg.URL, nil
	}
	if pg.Host == "" || pg.DBName == "" {
		return "", fmt.Errorf("postgres not configured (databases.postgres.host/dbname or url)")
	}
	port := pg.Port
	if port == "" {
		port = "5432"
	}
	ssl := pg.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", pg.User, pg.Password, pg.Host, port, pg.DBName, ssl), nil
}
