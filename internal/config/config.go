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
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// APIConfig describes how the client reaches the marketplace backend.
type APIConfig struct {
	BaseURL         string
	Origin          string
	Timeout         time.Duration
	DefaultLanguage string
}

// SessionConfig holds the client-side session guard policy.
type SessionConfig struct {
	MaxLoginAttempts      int
	LockoutDuration       time.Duration
	TokenRefreshInterval  time.Duration
	SessionTimeout        time.Duration
	ActivityCheckInterval time.Duration
	CSRFHeader            string
	// AttemptStore selects where login attempts live: "memory" or "redis".
	AttemptStore string
	// CredentialStore selects the persistent credential store: "memory" or "redis".
	CredentialStore string
}

// DevAPIConfig selects the development API's backing stores. Users and
// sessions live in Postgres when postgres.dsn is set, in memory otherwise.
type DevAPIConfig struct {
	// CacheStore holds the token blacklist and CSRF bindings: "memory" or "redis".
	CacheStore    string
	SweepInterval time.Duration
}

type SecurityConfig struct {
	JWTAccessSecret string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	MaxSessions     int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	API              APIConfig
	Session          SessionConfig
	Security         SecurityConfig
	DevAPI           DevAPIConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("HOMESERVICES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
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

	if err := cfg.Session.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration produced by the built-in defaults alone.
func Default() *AppConfig {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c SessionConfig) validate() error {
	if c.MaxLoginAttempts <= 0 {
		return fmt.Errorf("session.maxloginattempts must be positive, got %d", c.MaxLoginAttempts)
	}
	if c.TokenRefreshInterval <= 0 || c.ActivityCheckInterval <= 0 {
		return fmt.Errorf("session intervals must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("allowcorsorigins", []string{})

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.keyprefix", "homeservices:")

	v.SetDefault("api.baseurl", "http://localhost:8080/api")
	v.SetDefault("api.origin", "http://localhost:8080")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.defaultlanguage", "fr")

	v.SetDefault("session.maxloginattempts", 5)
	v.SetDefault("session.lockoutduration", "15m")
	v.SetDefault("session.tokenrefreshinterval", "4m") // ahead of the 5m access token
	v.SetDefault("session.sessiontimeout", "30m")
	v.SetDefault("session.activitycheckinterval", "60s")
	v.SetDefault("session.csrfheader", "X-CSRF-Token")
	v.SetDefault("session.attemptstore", "memory")
	v.SetDefault("session.credentialstore", "memory")

	// No usable default secret; the development API refuses to start without one.
	v.SetDefault("security.jwtaccesssecret", "")
	v.SetDefault("security.jwtaccessttl", "5m")
	v.SetDefault("security.jwtrefreshttl", "168h")
	v.SetDefault("security.maxsessions", 10)

	v.SetDefault("devapi.cachestore", "memory")
	v.SetDefault("devapi.sweepinterval", "10m")
}
