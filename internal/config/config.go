package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	HTTPAddr string
	DBUrl    string
	DBNs     string
	DBDb     string
	DBUser   string
	DBPass   string
}

// New loads configuration from environment variables.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		HTTPAddr: os.Getenv("HTTP_ADDR"),
		DBUrl:    os.Getenv("SURREAL_URL"),
		DBUser:   os.Getenv("SURREAL_USER"),
		DBPass:   os.Getenv("SURREAL_PASS"),
		DBNs:     os.Getenv("SURREAL_NS"),
		DBDb:     os.Getenv("SURREAL_DB"),
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	if cfg.DBUrl == "" || cfg.DBNs == "" || cfg.DBDb == "" {
		log.Fatal("Required environment variables SURREAL_URL, SURREAL_NS, or SURREAL_DB are not set.")
	}

	return cfg
}
