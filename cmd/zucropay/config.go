package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/zucropay/zucropay/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultGatewayAddr  = "https://sandbox.asaas.com/api/v3"
	defaultPublicURL    = "http://localhost:8000"
	defaultEnvironment  = logger.EnvProduction
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the zucropay service will be run
	ListenAddr string

	// Base URL of the external payment processor API
	GatewayAddr string

	// Platform-wide gateway credential, used for merchants without one
	GatewayAPIKey string

	// Public base URL used when building checkout links
	PublicBaseURL string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Signs merchant bearer tokens and outgoing webhook payloads
	SecretKey string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:      defaultLoggingLevel,
		ListenAddr:    defaultListenAddr,
		GatewayAddr:   defaultGatewayAddr,
		PublicBaseURL: defaultPublicURL,
		Environment:   defaultEnvironment,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":     setString(&c.ListenAddr),
		"DATABASE_URI":    setString(&c.DatabaseDSN),
		"SECRET_KEY":      setString(&c.SecretKey),
		"LOG_LEVEL":       setString(&c.LogLevel),
		"GATEWAY_ADDRESS": setString(&c.GatewayAddr),
		"GATEWAY_API_KEY": setString(&c.GatewayAPIKey),
		"PUBLIC_BASE_URL": setString(&c.PublicBaseURL),
		"ENVIRONMENT":     setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("zucropay", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.GatewayAddr, "gateway", "g", c.GatewayAddr, "Payment gateway base URL")
	fs.StringVarP(&c.GatewayAPIKey, "gateway-key", "k", c.GatewayAPIKey, "Platform gateway API key")
	fs.StringVarP(&c.PublicBaseURL, "public-url", "p", c.PublicBaseURL, "Public base URL for checkout links")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
