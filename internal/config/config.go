package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint          string
	AccessKey         string
	SecretKey         string
	BucketSubmissions string
	UseSSL            bool
	Region            string
}

type SecurityConfig struct {
	JWTSecret       string
	TokenTTL        time.Duration
	SignatureSecret string
	StoreTimeout    time.Duration
}

type ReviewConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type RateLimitConfig struct {
	GlobalWindow time.Duration
	GlobalMax    int
	ReviewWindow time.Duration
	ReviewMax    int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Review           ReviewConfig
	RateLimit        RateLimitConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CODESENSEI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	switch c.Environment {
	case "development", "production", "test":
	default:
		return fmt.Errorf("environment must be development, production or test, got %q", c.Environment)
	}

	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwtsecret must be at least 32 characters")
	}

	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("security.tokenttl must be positive")
	}

	return nil
}

// Production reports whether error details must be withheld from responses.
func (c *AppConfig) Production() bool {
	return c.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 10)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketsubmissions", "codesensei-submissions")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	// empty defaults register the keys so AutomaticEnv can fill them
	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.signaturesecret", "")
	v.SetDefault("security.tokenttl", "24h")
	v.SetDefault("security.storetimeout", "5s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("review.endpoint", "")
	v.SetDefault("review.apikey", "")

	v.SetDefault("review.model", "command")
	v.SetDefault("review.maxtokens", 500)
	v.SetDefault("review.timeout", "30s")

	v.SetDefault("ratelimit.globalwindow", "15m")
	v.SetDefault("ratelimit.globalmax", 100)
	v.SetDefault("ratelimit.reviewwindow", "1h")
	v.SetDefault("ratelimit.reviewmax", 10)
}
