package config

import (
	"os"
	"strconv"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Sync struct {
	CronSpec         string
	Concurrency      int
	CollectLimit     int
	AdapterTimeout   int
	MaxRetryAttempts int
}

type Config struct {
	FacebookAppID       string
	FacebookAppSecret   string
	FacebookRedirectURI string
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRedirectURI   string
	YoutubeAPIKey       string
	PostgresURI         string
	RedisURI            string
	FrontendURL         string
	R2                  R2
	Sync                Sync
	SecretKey           string
	CookieName          string
}

func LoadConfig() *Config {
	return &Config{
		FacebookAppID:       getEnv("FACEBOOK_APP_ID", ""),
		FacebookAppSecret:   getEnv("FACEBOOK_APP_SECRET", ""),
		FacebookRedirectURI: getEnv("FACEBOOK_REDIRECT_URI", ""),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:   getEnv("GOOGLE_REDIRECT_URI", ""),
		YoutubeAPIKey:       getEnv("YOUTUBE_API_KEY", ""),
		PostgresURI:         getEnv("POSTGRES_URI", ""),
		RedisURI:            getEnv("REDIS_URI", ""),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		Sync: Sync{
			CronSpec:         getEnv("SYNC_CRON_SPEC", "@every 01h00m00s"),
			Concurrency:      getEnvInt("SYNC_CONCURRENCY", 3),
			CollectLimit:     getEnvInt("SYNC_COLLECT_LIMIT", 50),
			AdapterTimeout:   getEnvInt("SYNC_ADAPTER_TIMEOUT", 120),
			MaxRetryAttempts: getEnvInt("SYNC_MAX_RETRIES", 3),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
