package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds the target database connection settings for gwdb.
type Config struct {
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Load reads configuration from viper, which merges flag values, env vars,
// and defaults (set up by the cobra command in cmd/gwdb).
func Load() Config {
	return Config{
		DBHost:     viper.GetString("db_host"),
		DBPort:     viper.GetInt("db_port"),
		DBUser:     viper.GetString("db_user"),
		DBPassword: viper.GetString("db_password"),
		DBName:     viper.GetString("db_name"),
		DBSSLMode:  viper.GetString("db_sslmode"),

		MaxOpenConns:    viper.GetInt("db_max_open_conns"),
		MaxIdleConns:    viper.GetInt("db_max_idle_conns"),
		ConnMaxLifetime: viper.GetDuration("db_conn_max_lifetime"),
	}
}

// DSN returns the keyword/value connection string for the target database.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
