package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Admin    AdminConfig
}

type AppConfig struct {
	Env string
}

// StorageConfig selects the persistence backend: memory, file, or postgres.
type StorageConfig struct {
	Backend     string
	ProductFile string
	UserFile    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// AdminConfig seeds the bootstrap administrator when the user store is empty.
type AdminConfig struct {
	Username string
	Password string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("STORAGE_BACKEND", "memory")
	viper.SetDefault("STORAGE_PRODUCT_FILE", "products.csv")
	viper.SetDefault("STORAGE_USER_FILE", "users.csv")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("ADMIN_USERNAME", "admin")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		App: AppConfig{
			Env: viper.GetString("APP_ENV"),
		},
		Storage: StorageConfig{
			Backend:     viper.GetString("STORAGE_BACKEND"),
			ProductFile: viper.GetString("STORAGE_PRODUCT_FILE"),
			UserFile:    viper.GetString("STORAGE_USER_FILE"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Admin: AdminConfig{
			Username: viper.GetString("ADMIN_USERNAME"),
			Password: viper.GetString("ADMIN_PASSWORD"),
		},
	}
}

// DSN assembles the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port +
		"/" + c.Database + "?sslmode=" + c.SSLMode
}
