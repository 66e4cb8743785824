// Package config provides environment-based configuration.
//
// Loads from .env file (godotenv), maps to Config struct via env struct tags.
// Platform credentials are optional here: they are only needed when the
// persisted cookie session cannot be reused.
package config
