package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Backup   BackupConfig
	Auth     AuthConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the ledger database location
type DatabaseConfig struct {
	Path string
}

// BackupConfig holds the snapshot archive location
type BackupConfig struct {
	Dir string
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret     string
	AdminPassword string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "data/saf_ledger.db"),
		},
		Backup: BackupConfig{
			Dir: getEnv("BACKUP_DIR", "backups"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "your-secret-key-here"),
			AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
		},
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
