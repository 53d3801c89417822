package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

type Config struct {
	Env      Env
	Port     string
	LogLevel string

	DatabaseURL string

	DirectoryBaseURL string
	DirectoryTimeout time.Duration

	AMQPURL             string
	CampaignEventsQueue string

	SessionSecret string
	SessionName   string

	FormTTL        time.Duration
	MaxUploadBytes int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", string(EnvDevelopment))
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DIRECTORY_BASE_URL", "https://api.retellai.com")
	v.SetDefault("DIRECTORY_TIMEOUT", "15s")
	v.SetDefault("CAMPAIGN_EVENTS_QUEUE", "campaign_created")
	v.SetDefault("SESSION_NAME", "campaign_session")
	v.SetDefault("FORM_TTL", "30m")
	v.SetDefault("MAX_UPLOAD_BYTES", 0)
}

// Load reads an optional .env file and then the process environment.
// envFile may be empty, in which case ".env" is tried.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	// a missing .env is fine, the OS environment is used as-is
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return FromViper(v)
}

// FromViper builds the config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:                 Env(v.GetString("APP_ENV")),
		Port:                v.GetString("PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		DirectoryBaseURL:    v.GetString("DIRECTORY_BASE_URL"),
		DirectoryTimeout:    v.GetDuration("DIRECTORY_TIMEOUT"),
		AMQPURL:             v.GetString("AMQP_URL"),
		CampaignEventsQueue: v.GetString("CAMPAIGN_EVENTS_QUEUE"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		SessionName:         v.GetString("SESSION_NAME"),
		FormTTL:             v.GetDuration("FORM_TTL"),
		MaxUploadBytes:      v.GetInt64("MAX_UPLOAD_BYTES"),
	}

	cfg.DatabaseURL = v.GetString("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDSN(
			v.GetString("DB_USER"),
			v.GetString("DB_PASSWORD"),
			v.GetString("DB_HOST"),
			v.GetString("DB_PORT"),
			v.GetString("DB_NAME"),
			v.GetString("DB_SSLMODE"),
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildDSN(user, pass, host, port, name, sslmode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     host + ":" + port,
		Path:     name,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}

func (c *Config) Validate() error {
	var errs []error
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must be set"))
	}
	if c.Env == EnvProduction && c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET must be set in production"))
	}
	if c.DirectoryTimeout < 0 {
		errs = append(errs, errors.New("DIRECTORY_TIMEOUT must not be negative"))
	}
	if c.FormTTL <= 0 {
		errs = append(errs, errors.New("FORM_TTL must be positive"))
	}
	if c.MaxUploadBytes < 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must not be negative"))
	}
	return errors.Join(errs...)
}

// SessionKey returns the cookie signing key. Development falls back to a
// fixed key so local runs work without setup.
func (c *Config) SessionKey() []byte {
	if c.SessionSecret == "" {
		return []byte("development-only-session-secret")
	}
	return []byte(c.SessionSecret)
}
