// Package config loads process configuration once at startup.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads from the environment.
type Config struct {
	Port         int           `mapstructure:"PORT"`
	MongoURI     string        `mapstructure:"MONGO_URI"`
	MongoDB      string        `mapstructure:"MONGO_DB"`
	StoreTimeout time.Duration `mapstructure:"STORE_TIMEOUT"`

	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	JWTForgetPassword string        `mapstructure:"JWT_FORGET_PASSWORD"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	ResetTTL          time.Duration `mapstructure:"RESET_TTL"`
	BcryptCost        int           `mapstructure:"BCRYPT_COST"`

	SMTPServer        string `mapstructure:"SMTP_SERVER"`
	SendEmail         string `mapstructure:"SEND_EMAIL"`
	SendEmailPassword string `mapstructure:"SEND_EMAIL_PASSWORD"`
	MailFrom          string `mapstructure:"MAIL_FROM"`
	ResetURLBase      string `mapstructure:"RESET_URL_BASE"`

	ResetSingleUse bool   `mapstructure:"RESET_SINGLE_USE"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`

	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
}

var keys = []string{
	"PORT", "MONGO_URI", "MONGO_DB", "STORE_TIMEOUT",
	"JWT_SECRET", "JWT_FORGET_PASSWORD", "SESSION_TTL", "RESET_TTL", "BCRYPT_COST",
	"SMTP_SERVER", "SEND_EMAIL", "SEND_EMAIL_PASSWORD", "MAIL_FROM", "RESET_URL_BASE",
	"RESET_SINGLE_USE", "REDIS_ADDR", "CORS_ORIGINS", "LOG_LEVEL",
}

// LoadDotEnv loads a .env file into the process environment if one is present.
// Variables that are already set win over the file.
func LoadDotEnv(files ...string) error {
	return godotenv.Load(files...)
}

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("PORT", 5000)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "authgate")
	v.SetDefault("STORE_TIMEOUT", 5*time.Second)
	v.SetDefault("SESSION_TTL", time.Hour)
	v.SetDefault("RESET_TTL", 10*time.Minute)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("SMTP_SERVER", "smtp.gmail.com:587")
	v.SetDefault("MAIL_FROM", "noreply@gmail.com")
	v.SetDefault("RESET_URL_BASE", "http://localhost:3000/resetPassword")
	v.SetDefault("RESET_SINGLE_USE", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about; keys without a default must be bound.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that would make the service unsafe to start.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTForgetPassword == "" {
		errs = append(errs, errors.New("JWT_FORGET_PASSWORD is required"))
	}
	if c.JWTSecret != "" && c.JWTSecret == c.JWTForgetPassword {
		errs = append(errs, errors.New("JWT_SECRET and JWT_FORGET_PASSWORD must differ"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.ResetTTL <= 0 {
		errs = append(errs, errors.New("RESET_TTL must be positive"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("PORT is out of range"))
	}
	return errors.Join(errs...)
}

// CORSOriginList splits CORS_ORIGINS on commas.
func (c *Config) CORSOriginList() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
