package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type Config struct {
	Platform struct {
		Name     string `mapstructure:"NAME"`
		Timezone string `mapstructure:"TIMEZONE"`
	} `mapstructure:"PLATFORM"`
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	NodeID     int64  `mapstructure:"NODE_ID"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Mongo struct {
		URI      string        `mapstructure:"URI"`
		Database string        `mapstructure:"DATABASE"`
		Timeout  time.Duration `mapstructure:"TIMEOUT"`
	} `mapstructure:"MONGO"`
	Auth struct {
		JWTSecret string        `mapstructure:"JWT_SECRET"`
		Issuer    string        `mapstructure:"ISSUER"`
		TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`
	} `mapstructure:"AUTH"`
	Workflow struct {
		Timeout time.Duration `mapstructure:"TIMEOUT"`
	} `mapstructure:"WORKFLOW"`
	Summary struct {
		CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
	} `mapstructure:"SUMMARY"`
	Otel struct {
		Enable   bool   `mapstructure:"ENABLE"`
		Exporter string `mapstructure:"EXPORTER"`
		Endpoint string `mapstructure:"ENDPOINT"`
		Insecure bool   `mapstructure:"INSECURE"`
	} `mapstructure:"OTEL"`
	Metrics struct {
		Enable bool `mapstructure:"ENABLE"`
	} `mapstructure:"METRICS"`
	Pyroscope struct {
		Enable bool   `mapstructure:"ENABLE"`
		Addr   string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "salesdesk")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("PLATFORM.TIMEZONE", "UTC")
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.PORT", "5432")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_IDLE_CONN", 10)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_LIFETIME", 5*time.Minute)
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 4*time.Second)
	v.SetDefault("MONGO.DATABASE", "salesdesk")
	v.SetDefault("MONGO.TIMEOUT", 20*time.Second)
	v.SetDefault("AUTH.ISSUER", "salesdesk")
	v.SetDefault("AUTH.TOKEN_TTL", 7*24*time.Hour)
	v.SetDefault("WORKFLOW.TIMEOUT", 30*time.Second)
	v.SetDefault("SUMMARY.CACHE_TTL", 5*time.Minute)
	v.SetDefault("OTEL.EXPORTER", "grpc")
	v.SetDefault("OTEL.INSECURE", true)

	// keys without a sensible default are bound explicitly, AutomaticEnv alone
	// does not surface them during Unmarshal.
	for _, key := range []string{
		"APP_VERSION", "PLATFORM.NAME",
		"TLS.ENABLE", "TLS.CERT_PATH", "TLS.KEY_PATH",
		"DATABASE.HOST", "DATABASE.DBNAME", "DATABASE.USER", "DATABASE.PASSWORD",
		"DATABASE.CONNECTION_POOL.CONN_MAX_IDLE_TIME",
		"REDIS.PASSWORD", "REDIS.DB",
		"MONGO.URI", "AUTH.JWT_SECRET",
		"OTEL.ENABLE", "OTEL.ENDPOINT",
		"PYROSCOPE.ENABLE", "PYROSCOPE.ADDR", "METRICS.ENABLE",
	} {
		_ = v.BindEnv(key, strings.ReplaceAll(key, ".", "_"))
	}
}

// LoadConfig reads config.yaml from the working directory (when present) and
// lets environment variables override every key, e.g. DATABASE_HOST.
func LoadConfig() (*Config, error) {
	return Load(viper.New(), ".")
}

func Load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.TLS.Enable && (cfg.TLS.CertPath == "" || cfg.TLS.KeyPath == "") {
		return nil, fmt.Errorf("tls enabled but TLS_CERT_PATH or TLS_KEY_PATH not provided")
	}

	if cfg.Pyroscope.Enable && cfg.Pyroscope.Addr == "" {
		return nil, fmt.Errorf("pyroscope enabled but PYROSCOPE_ADDR not provided")
	}

	if cfg.AppEnv == "production" && cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required in production")
	}

	return &cfg, nil
}

// Location returns the platform timezone used to normalise target dates.
func (c *Config) Location() *time.Location {
	if c == nil || c.Platform.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Platform.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
