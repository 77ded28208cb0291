// Package config provides environment-based configuration.
//
// Loads from a .env file when present (godotenv), maps variables to the
// Config struct via go-simpler/env struct tags, and validates required
// fields and limits.
package config
