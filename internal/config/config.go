package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	AppPort string
	AppEnv  string

	JWTSecret string

	KhaltiSecretKey string
	KhaltiBaseURL   string
	FrontendURL     string
}

const defaultKhaltiBaseURL = "https://dev.khalti.com/api/v2"

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:          os.Getenv("DB_HOST"),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          os.Getenv("DB_NAME"),
		DBPort:          os.Getenv("DB_PORT"),
		AppPort:         os.Getenv("APP_PORT"),
		AppEnv:          os.Getenv("APP_ENV"),
		JWTSecret:       os.Getenv("SECRET_KEY"),
		KhaltiSecretKey: os.Getenv("KHALTI_SECRET_KEY"),
		KhaltiBaseURL:   os.Getenv("KHALTI_BASE_URL"),
		FrontendURL:     os.Getenv("FRONTEND_URL"),
	}

	if cfg.KhaltiBaseURL == "" {
		cfg.KhaltiBaseURL = defaultKhaltiBaseURL
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}
