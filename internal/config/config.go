// Package config carga la configuración desde YAML con overrides por
// variables de entorno.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// RateLimit acota los initiate por username. Max negativo lo deshabilita.
		RateLimit struct {
			Max    int    `yaml:"max"`
			Window string `yaml:"window"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	// Accounts es el backend durable de cuentas de autenticador.
	Accounts struct {
		Driver string `yaml:"driver"` // memory | postgres
		DSN    string `yaml:"dsn"`
	} `yaml:"accounts"`

	// RequestStore es el backend de requests transitorios.
	RequestStore struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
		Cleaner struct {
			Interval      string `yaml:"interval"`
			TerminalGrace string `yaml:"terminal_grace"`
		} `yaml:"cleaner"`
	} `yaml:"request_store"`

	Authenticator struct {
		ChallengeKind       string `yaml:"challenge_kind"` // APPROVE | WRITE | CHOOSE
		AuthTimeout         string `yaml:"auth_timeout"`
		RegistrationTimeout string `yaml:"registration_timeout"`
		Issuer              string `yaml:"issuer"`
		CodeDigits          int    `yaml:"code_digits"`
		WindowSize          int    `yaml:"window_size"`
		TimeStep            string `yaml:"time_step"`
		HashAlgorithm       string `yaml:"hash_algorithm"` // sha1 | sha256
		Representation      string `yaml:"representation"` // base32 | base64
		ScratchCodeCount    int    `yaml:"scratch_code_count"`
	} `yaml:"authenticator"`

	Messaging struct {
		Kind        string `yaml:"kind"` // http | amqp | noop
		URL         string `yaml:"url"`
		APIKey      string `yaml:"api_key"`
		APISecret   string `yaml:"api_secret"`
		Timeout     string `yaml:"timeout"`
		CallbackURL string `yaml:"callback_url"`
		AMQP        struct {
			URL   string `yaml:"url"`
			Queue string `yaml:"queue"`
		} `yaml:"amqp"`
	} `yaml:"messaging"`

	Security struct {
		// base64(32 bytes), cifra secretos y scratch codes en reposo
		SecretBoxMasterKey string `yaml:"secretbox_master_key"`
	} `yaml:"security"`

	Sentry struct {
		DSN string `yaml:"dsn"`
	} `yaml:"sentry"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateLimit.Max == 0 {
		c.Server.RateLimit.Max = 10
	}
	if c.Server.RateLimit.Window == "" {
		c.Server.RateLimit.Window = "1m"
	}
	if c.Accounts.Driver == "" {
		c.Accounts.Driver = "memory"
	}
	if c.RequestStore.Kind == "" {
		c.RequestStore.Kind = "memory"
	}
	if c.RequestStore.Memory.DefaultTTL == "" {
		c.RequestStore.Memory.DefaultTTL = "2m"
	}
	if c.RequestStore.Redis.Prefix == "" {
		c.RequestStore.Redis.Prefix = "authpush"
	}
	if c.RequestStore.Cleaner.Interval == "" {
		c.RequestStore.Cleaner.Interval = "1m"
	}
	if c.RequestStore.Cleaner.TerminalGrace == "" {
		c.RequestStore.Cleaner.TerminalGrace = "3m"
	}
	if c.Authenticator.ChallengeKind == "" {
		c.Authenticator.ChallengeKind = "WRITE"
	}
	if c.Authenticator.AuthTimeout == "" {
		c.Authenticator.AuthTimeout = "60s"
	}
	if c.Authenticator.RegistrationTimeout == "" {
		c.Authenticator.RegistrationTimeout = "10m"
	}
	if c.Authenticator.Issuer == "" {
		c.Authenticator.Issuer = "authpush"
	}
	if c.Messaging.Kind == "" {
		c.Messaging.Kind = "noop"
	}
	if c.Messaging.Timeout == "" {
		c.Messaging.Timeout = "10s"
	}
	if c.Messaging.AMQP.Queue == "" {
		c.Messaging.AMQP.Queue = "push-notifications"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// ACCOUNTS
	if v, ok := getEnvStr("ACCOUNTS_DRIVER"); ok {
		c.Accounts.Driver = v
	}
	if v, ok := getEnvStr("ACCOUNTS_DSN"); ok {
		c.Accounts.DSN = v
	}

	// REQUEST STORE
	if v, ok := getEnvStr("REQUEST_STORE_KIND"); ok {
		c.RequestStore.Kind = v
	}
	if v, ok := getEnvStr("REQUEST_STORE_REDIS_ADDR"); ok {
		c.RequestStore.Redis.Addr = v
	}
	if v, ok := getEnvInt("REQUEST_STORE_REDIS_DB"); ok {
		c.RequestStore.Redis.DB = v
	}
	if v, ok := getEnvStr("REQUEST_STORE_REDIS_PREFIX"); ok {
		c.RequestStore.Redis.Prefix = v
	}

	// AUTHENTICATOR
	if v, ok := getEnvStr("AUTH_CHALLENGE_KIND"); ok {
		c.Authenticator.ChallengeKind = v
	}
	if v, ok := getEnvStr("AUTH_TIMEOUT"); ok {
		c.Authenticator.AuthTimeout = v
	}
	if v, ok := getEnvStr("AUTH_REGISTRATION_TIMEOUT"); ok {
		c.Authenticator.RegistrationTimeout = v
	}
	if v, ok := getEnvStr("AUTH_ISSUER"); ok {
		c.Authenticator.Issuer = v
	}

	// MESSAGING
	if v, ok := getEnvStr("MESSAGING_KIND"); ok {
		c.Messaging.Kind = v
	}
	if v, ok := getEnvStr("MESSAGING_URL"); ok {
		c.Messaging.URL = v
	}
	if v, ok := getEnvStr("MESSAGING_API_KEY"); ok {
		c.Messaging.APIKey = v
	}
	if v, ok := getEnvStr("MESSAGING_API_SECRET"); ok {
		c.Messaging.APISecret = v
	}
	if v, ok := getEnvStr("MESSAGING_CALLBACK_URL"); ok {
		c.Messaging.CallbackURL = v
	}
	if v, ok := getEnvStr("MESSAGING_AMQP_URL"); ok {
		c.Messaging.AMQP.URL = v
	}
	if v, ok := getEnvStr("MESSAGING_AMQP_QUEUE"); ok {
		c.Messaging.AMQP.Queue = v
	}

	// SECURITY
	if v, ok := getEnvStr("SECRETBOX_MASTER_KEY"); ok {
		c.Security.SecretBoxMasterKey = v
	}

	// SENTRY
	if v, ok := getEnvStr("SENTRY_DSN"); ok {
		c.Sentry.DSN = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

func (c *Config) Validate() error {
	switch c.Accounts.Driver {
	case "memory":
	case "postgres":
		if c.Accounts.DSN == "" {
			return fmt.Errorf("config: accounts.dsn is required with the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown accounts driver %q", c.Accounts.Driver)
	}

	switch c.RequestStore.Kind {
	case "memory":
	case "redis":
		if c.RequestStore.Redis.Addr == "" {
			return fmt.Errorf("config: request_store.redis.addr is required with the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown request store kind %q", c.RequestStore.Kind)
	}

	switch c.Messaging.Kind {
	case "noop":
	case "http":
		if c.Messaging.URL == "" {
			return fmt.Errorf("config: messaging.url is required with the http gateway")
		}
	case "amqp":
		if c.Messaging.AMQP.URL == "" {
			return fmt.Errorf("config: messaging.amqp.url is required with the amqp gateway")
		}
	default:
		return fmt.Errorf("config: unknown messaging kind %q", c.Messaging.Kind)
	}
	return nil
}

// Duration parsea un campo duración ya validado por defaults; si el valor
// es inválido retorna el fallback.
func Duration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
		return d
	}
	return fallback
}
