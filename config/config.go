package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string
	RoutePrefix  string

	// Optional shared secret checked against the access_code form field.
	AccessCode string

	// Generative text backend.
	LLMProvider string
	LLMAPIURL   string
	LLMAPIKey   string
	LLMModel    string

	// Stock footage catalog.
	CatalogAPIURL          string
	CatalogAPIKey          string
	CatalogRequestTimeout  time.Duration
	CatalogConnectTimeout  time.Duration
	CatalogDownloadTimeout time.Duration
	CatalogMaxRetries      int

	// Queued download worker.
	QueueTries        int
	QueueBackoff      time.Duration
	QueuePollInterval time.Duration
	QueueWaitTimeout  time.Duration
	QueueRetryUntil   time.Duration
	JobRetention      time.Duration

	// Storage areas for temporary inputs and rendered output.
	TempDir         string
	OutputDir       string
	OutputRetention time.Duration

	// Fixed output video spec.
	VideoWidth    int
	VideoHeight   int
	VideoFPS      int
	VideoDuration float64
	VideoFormat   string

	// Fonts used for caption burn-in.
	FontDir      string
	FontOverride string

	// Inbound request caps.
	MaxUploadBytes int64
	MaxTextLength  int

	// Optional Postgres-backed download job registry.
	DatabaseURL string

	// Optional SMS alerting for permanently failed downloads.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	AlertPhoneNumber string
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}
}

func Load() Config {
	return Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		Domains:      strings.Split(getEnv("DOMAIN", "example.com"), ","),
		CertCacheDir: getEnv("CERT_CACHE_DIR", "/etc/letsencrypt/live/example.com"),
		HTTPPort:     getEnv("HTTP_PORT", "8087"),
		HTTPSPort:    getEnv("HTTPS_PORT", "443"),
		RoutePrefix:  getEnv("ROUTE_PREFIX", "/api"),

		AccessCode: getEnv("ACCESS_CODE", ""),

		LLMProvider: getEnv("LLM_PROVIDER", "openai"),
		LLMAPIURL:   getEnv("LLM_API_URL", "https://api.openai.com/v1/chat/completions"),
		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMModel:    getEnv("LLM_MODEL", "gpt-4o-mini"),

		CatalogAPIURL:          getEnv("CATALOG_API_URL", "https://api.pexels.com"),
		CatalogAPIKey:          getEnv("CATALOG_API_KEY", ""),
		CatalogRequestTimeout:  getEnvAsDuration("CATALOG_REQUEST_TIMEOUT", 15*time.Second),
		CatalogConnectTimeout:  getEnvAsDuration("CATALOG_CONNECT_TIMEOUT", 5*time.Second),
		CatalogDownloadTimeout: getEnvAsDuration("CATALOG_DOWNLOAD_TIMEOUT", 120*time.Second),
		CatalogMaxRetries:      getEnvAsInt("CATALOG_MAX_RETRIES", 2),

		QueueTries:        getEnvAsInt("QUEUE_TRIES", 3),
		QueueBackoff:      getEnvAsDuration("QUEUE_BACKOFF", 5*time.Second),
		QueuePollInterval: getEnvAsDuration("QUEUE_POLL_INTERVAL", 2*time.Second),
		QueueWaitTimeout:  getEnvAsDuration("QUEUE_WAIT_TIMEOUT", 60*time.Second),
		QueueRetryUntil:   getEnvAsDuration("QUEUE_RETRY_UNTIL", 30*time.Minute),
		JobRetention:      getEnvAsDuration("JOB_RETENTION", 1*time.Hour),

		TempDir:         getEnv("TEMP_DIR", "storage/reel/tmp"),
		OutputDir:       getEnv("OUTPUT_DIR", "storage/reel/videos"),
		OutputRetention: getEnvAsDuration("OUTPUT_RETENTION", 72*time.Hour),

		VideoWidth:    getEnvAsInt("VIDEO_WIDTH", 1080),
		VideoHeight:   getEnvAsInt("VIDEO_HEIGHT", 1920),
		VideoFPS:      getEnvAsInt("VIDEO_FPS", 30),
		VideoDuration: getEnvAsFloat("VIDEO_DURATION", 5.0),
		VideoFormat:   getEnv("VIDEO_FORMAT", "mp4"),

		FontDir:      getEnv("FONT_DIR", "assets/fonts"),
		FontOverride: getEnv("FONT_OVERRIDE", ""),

		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),
		MaxTextLength:  getEnvAsInt("MAX_TEXT_LENGTH", 5000),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		AlertPhoneNumber: getEnv("ALERT_PHONE_NUMBER", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration reads values like "30s" or "15m"; plain integers are
// treated as seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
