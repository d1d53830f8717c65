package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Scheme            string // Optional: challenge URL scheme (default: qrauth)
	ProtocolVersion   int    // Optional: protocol version this client speaks (default: 2)
	CompatibilityMode bool   // Optional: accept servers speaking older protocol versions (default: true)
	Language          string // Optional: language hint sent with submissions (default: en)

	TokenExchangeEnabled bool   // Optional: enable the notification token exchange (default: false)
	TokenExchangeURL     string // Required when token exchange is enabled

	DatabaseFile  string        // Optional: path to SQLite database file (default: ./qrauth.db)
	KeyStoreDir   string        // Optional: directory for sealed secrets (default: ./keystore)
	DeviceKeyFile string        // Optional: path to the device wrapping key (default: ./devicekey)
	KDFIterations int           // Optional: PBKDF2 iteration count for session keys (default: 100000)
	HTTPTimeout   time.Duration // Optional: timeout for a single submission (default: 15s)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
}

func LoadConfig() Config {
	return Config{
		Scheme:            getEnvOrDefault("QRAUTH_SCHEME", "qrauth"),
		ProtocolVersion:   getEnvIntOrDefault("QRAUTH_PROTOCOL_VERSION", 2),
		CompatibilityMode: getEnvBoolOrDefault("QRAUTH_PROTOCOL_COMPATIBILITY_MODE", true),
		Language:          getEnvOrDefault("QRAUTH_LANGUAGE", "en"),

		TokenExchangeEnabled: getEnvBoolOrDefault("QRAUTH_TOKEN_EXCHANGE_ENABLED", false),
		TokenExchangeURL:     os.Getenv("QRAUTH_TOKEN_EXCHANGE_URL"),

		DatabaseFile:  getEnvOrDefault("QRAUTH_DATABASE_FILE", "qrauth.db"),
		KeyStoreDir:   getEnvOrDefault("QRAUTH_KEYSTORE_DIR", "keystore"),
		DeviceKeyFile: getEnvOrDefault("QRAUTH_DEVICE_KEY_FILE", "devicekey"),
		KDFIterations: getEnvIntOrDefault("QRAUTH_KDF_ITERATIONS", 100_000),
		HTTPTimeout:   getEnvDurationOrDefault("QRAUTH_HTTP_TIMEOUT", 15*time.Second),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are taken as seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
