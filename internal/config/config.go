package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Warehouse  WarehouseConfig  `yaml:"warehouse" mapstructure:"warehouse"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Tensorlake TensorlakeConfig `yaml:"tensorlake" mapstructure:"tensorlake"`
	Wikipedia  WikipediaConfig  `yaml:"wikipedia" mapstructure:"wikipedia"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" mapstructure:"retrieval"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// WarehouseConfig configures the analytical warehouse connection. The
// credential fields are populated from the SNOWFLAKE_* environment variables.
type WarehouseConfig struct {
	Driver     string `yaml:"driver" mapstructure:"driver"`
	URL        string `yaml:"url" mapstructure:"url"`
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Account    string `yaml:"account" mapstructure:"account"`
	User       string `yaml:"user" mapstructure:"user"`
	Password   string `yaml:"password" mapstructure:"password"`
	Warehouse  string `yaml:"warehouse" mapstructure:"warehouse"`
	Database   string `yaml:"database" mapstructure:"database"`
	Schema     string `yaml:"schema" mapstructure:"schema"`
	MaxConns   int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// LLMConfig selects the language-model provider used by the query pipeline.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Model       string  `yaml:"model" mapstructure:"model"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// TensorlakeConfig holds Tensorlake Document AI settings.
type TensorlakeConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	PollTimeoutSecs   int     `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
}

// WikipediaConfig holds MediaWiki API settings.
type WikipediaConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// RetrievalConfig tunes the context retrieval fallback chain.
type RetrievalConfig struct {
	Limit               int     `yaml:"limit" mapstructure:"limit"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// IngestConfig configures filing ingestion fan-out.
type IngestConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
	DocumentTimeoutSecs    int `yaml:"document_timeout_secs" mapstructure:"document_timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envBindings maps config keys to the unprefixed environment variables the
// deployment already provides.
var envBindings = map[string]string{
	"openai.key":          "OPENAI_API_KEY",
	"anthropic.key":       "ANTHROPIC_API_KEY",
	"tensorlake.key":      "TENSORLAKE_API_KEY",
	"warehouse.account":   "SNOWFLAKE_ACCOUNT",
	"warehouse.user":      "SNOWFLAKE_USER",
	"warehouse.password":  "SNOWFLAKE_PASSWORD",
	"warehouse.warehouse": "SNOWFLAKE_WAREHOUSE",
	"warehouse.database":  "SNOWFLAKE_DATABASE",
	"warehouse.schema":    "SNOWFLAKE_SCHEMA",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WAREHOUSE_RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", env)
		}
	}

	// Defaults
	v.SetDefault("warehouse.driver", "postgres")
	v.SetDefault("warehouse.sqlite_path", "warehouse.db")
	v.SetDefault("warehouse.warehouse", "COMPUTE_WH")
	v.SetDefault("warehouse.max_conns", 10)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("tensorlake.base_url", "https://api.tensorlake.ai/documents/v2")
	v.SetDefault("tensorlake.requests_per_second", 2.0)
	v.SetDefault("tensorlake.poll_timeout_secs", 600)
	v.SetDefault("wikipedia.base_url", "https://en.wikipedia.org")
	v.SetDefault("wikipedia.user_agent", "warehouse-rag/1.0 (https://github.com/sells-group/warehouse-rag)")
	v.SetDefault("wikipedia.requests_per_second", 5.0)
	v.SetDefault("retrieval.limit", 5)
	v.SetDefault("retrieval.similarity_threshold", 0.5)
	v.SetDefault("ingest.max_concurrent_documents", 4)
	v.SetDefault("ingest.document_timeout_secs", 900)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command depends on are present.
// Mode is one of "answer", "ingest", "query" or "serve".
func (c *Config) Validate(mode string) error {
	missing := c.Warehouse.missing()

	needLLM := mode == "answer" || mode == "serve"
	needTensorlake := mode == "answer" || mode == "ingest" || mode == "serve"

	if needLLM {
		switch c.LLM.Provider {
		case "openai":
			if c.OpenAI.Key == "" {
				missing = append(missing, "OPENAI_API_KEY")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				missing = append(missing, "ANTHROPIC_API_KEY")
			}
		default:
			return eris.Errorf("config: unsupported llm provider %q", c.LLM.Provider)
		}
	}
	if needTensorlake && c.Tensorlake.Key == "" {
		missing = append(missing, "TENSORLAKE_API_KEY")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings for %s: %s", mode, strings.Join(missing, ", "))
	}
	return nil
}

func (w WarehouseConfig) missing() []string {
	switch w.Driver {
	case "sqlite":
		if w.SQLitePath == "" {
			return []string{"warehouse.sqlite_path"}
		}
		return nil
	case "postgres":
		if w.URL != "" {
			return nil
		}
		var out []string
		for env, val := range map[string]string{
			"SNOWFLAKE_ACCOUNT":  w.Account,
			"SNOWFLAKE_USER":     w.User,
			"SNOWFLAKE_PASSWORD": w.Password,
			"SNOWFLAKE_DATABASE": w.Database,
			"SNOWFLAKE_SCHEMA":   w.Schema,
		} {
			if val == "" {
				out = append(out, env)
			}
		}
		slices.Sort(out)
		return out
	default:
		return []string{fmt.Sprintf("warehouse.driver (unsupported %q)", w.Driver)}
	}
}

// DSN returns the Postgres connection string. An explicit URL wins; otherwise
// the string is assembled from the account (host[:port]) and credentials.
func (w WarehouseConfig) DSN() string {
	if w.URL != "" {
		return w.URL
	}
	host := w.Account
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "5432")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(w.User, w.Password),
		Host:   host,
		Path:   "/" + w.Database,
	}
	q := url.Values{}
	if w.Warehouse != "" {
		q.Set("application_name", w.Warehouse)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted returns a copy of the config with credentials masked.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.Warehouse.Password = mask(c.Warehouse.Password)
	if c.Warehouse.URL != "" {
		if u, err := url.Parse(c.Warehouse.URL); err == nil && u.User != nil {
			u.User = url.UserPassword(u.User.Username(), "****")
			c.Warehouse.URL = u.String()
		}
	}
	c.OpenAI.Key = mask(c.OpenAI.Key)
	c.Anthropic.Key = mask(c.Anthropic.Key)
	c.Tensorlake.Key = mask(c.Tensorlake.Key)
	return c
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
