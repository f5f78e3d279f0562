// Package config loads process configuration from the environment with an
// optional .env file, viper underneath.
package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Env             string `mapstructure:"ENV"`
	Port            string `mapstructure:"PORT"`
	DBPath          string `mapstructure:"DB_PATH"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	CORSAllowed     string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	MaxUploadSizeMB int64  `mapstructure:"MAX_UPLOAD_MB"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "utilization.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 25)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
