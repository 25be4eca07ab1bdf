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

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (default), TEST, QA, PROD
		Build            string
		AppName          string
		SecretKey        string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Gateway  GatewayConfig
		Cache    CacheConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}

	ServerConfig struct {
		Host               string
		Addr               string
		JWTExpirationDelta time.Duration
	}

	GatewayConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	CacheConfig struct {
		TTL             time.Duration
		RefreshInterval time.Duration
	}

	DatabaseConfig struct {
		Engine     string
		Name       string
		Host       string
		Port       string
		User       string
		Password   string
		DisableTLS bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the app configuration from defaults, an optional
// .env.<env> file and environment variables (prefixed with the env name).
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Dawati")
	conf.SetDefault("secretKey", "w3p$-oq5r)enb+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddr", ":8000")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("gatewayBaseURL", "http://localhost:8000")
	conf.SetDefault("gatewayTimeout", 15*time.Second)
	conf.SetDefault("cacheTTL", 30*time.Second)
	conf.SetDefault("cacheRefreshInterval", time.Minute)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbName", "dawati")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("redisAddr", "localhost:6379")

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		DefaultFromEmail: mail.Address{Address: conf.GetString("defaultFromEmail")},
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Addr:               conf.GetString("serverAddr"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
		Gateway: GatewayConfig{
			BaseURL: conf.GetString("gatewayBaseURL"),
			Timeout: conf.GetDuration("gatewayTimeout"),
		},
		Cache: CacheConfig{
			TTL:             conf.GetDuration("cacheTTL"),
			RefreshInterval: conf.GetDuration("cacheRefreshInterval"),
		},
		Database: DatabaseConfig{
			Engine:     conf.GetString("dbEngine"),
			Name:       conf.GetString("dbName"),
			Host:       conf.GetString("dbHost"),
			Port:       conf.GetString("dbPort"),
			User:       conf.GetString("dbUser"),
			Password:   conf.GetString("dbPassword"),
			DisableTLS: conf.GetBool("dbDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:     conf.GetString("redisAddr"),
			Password: conf.GetString("redisPassword"),
			DB:       conf.GetInt("redisDB"),
		},
	}
}
