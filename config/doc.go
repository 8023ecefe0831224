// Package config loads service configuration with Viper.
//
// LoadConfig reads a YAML file (explicit or found under cmd/<service>/,
// config/ or the working directory), loads an optional .env file with
// godotenv, then lets prefixed environment variables override file values.
// ServiceConfig holds the name, environment and logging settings shared by
// every binary.
//
// # Usage
//
//	var cfg Config
//	err := config.LoadConfig("redis-manager", &cfg, config.WithConfigFile(path))
package config
