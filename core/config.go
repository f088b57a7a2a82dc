package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StorageBolt     = "bolt"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type (
	StorageConfig struct {
		Driver string
		Path   string // bolt file
		DSN    string // postgres | sqlite
	}

	RedisConfig struct {
		URL           string
		Prefix        string
		NotifyChannel string
	}

	Config struct {
		Env      string
		Build    string
		AppName  string
		Debug    bool
		TestMode bool

		RollbarToken string

		Storage StorageConfig
		Redis   RedisConfig

		// Latency is the simulated round trip of every deferred API call.
		Latency time.Duration

		SendgridApiKey string
		FromEmail      string
	}
)

// DefaultFromEmail parses the configured sender, falling back to a bare address.
func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.FromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.FromEmail}
}

// NewConfig reads the configuration of the current ENV (DEV by default).
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Practicum")
	conf.SetDefault("build", "develop")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("storageDriver", StorageBolt)
	conf.SetDefault("storagePath", filepath.Join("data", "practicum.db"))
	conf.SetDefault("storageDSN", "")
	conf.SetDefault("redisURL", "redis://localhost:6379/0")
	conf.SetDefault("redisPrefix", "practicum:")
	conf.SetDefault("notifyChannel", "user_notifications")
	conf.SetDefault("latency", time.Second)
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("defaultFromEmail", "Practicum <noreply@localhost>")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
		conf.SetDefault("latency", time.Duration(0))
		conf.SetDefault("storageDriver", StorageMemory)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:          env,
		Build:        conf.GetString("build"),
		AppName:      conf.GetString("appName"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		RollbarToken: conf.GetString("rollbarToken"),
		Storage: StorageConfig{
			Driver: strings.ToLower(conf.GetString("storageDriver")),
			Path:   conf.GetString("storagePath"),
			DSN:    conf.GetString("storageDSN"),
		},
		Redis: RedisConfig{
			URL:           conf.GetString("redisURL"),
			Prefix:        conf.GetString("redisPrefix"),
			NotifyChannel: conf.GetString("notifyChannel"),
		},
		Latency:        conf.GetDuration("latency"),
		SendgridApiKey: conf.GetString("sendgridApiKey"),
		FromEmail:      conf.GetString("defaultFromEmail"),
	}
}
