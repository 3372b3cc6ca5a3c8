package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DBDSN          string
	APIURL         string
	APITimeout     time.Duration
	LogFile        string
	TemplatesDir   string
	StaticDir      string
	MaxUploadBytes int
}

func Load() Config {
	// A missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := Config{
		Port:           getEnv("PORT", "8081"),
		DBDSN:          getEnv("DB_DSN", "vitrina.db"), // sqlite file in project root
		APIURL:         getEnv("API_URL", "http://localhost:8080/api"),
		APITimeout:     getEnvDuration("API_TIMEOUT", 10*time.Second),
		LogFile:        getEnv("LOG_FILE", "./vitrina.log"),
		TemplatesDir:   getEnv("TEMPLATES_DIR", "./web/templates"),
		StaticDir:      getEnv("STATIC_DIR", "./web/static"),
		MaxUploadBytes: getEnvInt("MAX_UPLOAD_BYTES", 5<<20),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s API_URL=%s API_TIMEOUT=%s LOG_FILE=%s",
		cfg.Port, cfg.DBDSN, cfg.APIURL, cfg.APITimeout, cfg.LogFile)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("[config] invalid %s=%q, using %d", key, v, def)
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("[config] invalid %s=%q, using %s", key, v, def)
	}
	return def
}
