package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress string
	AppEnv        string
	ClientURL     string
	PublicURL     string

	DatabaseBackend string
	MongoURI        string
	MongoDB         string

	SessionSecret string
	SessionTTL    time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	MaxBans          int
	DefaultPageLimit int64
	MaxUploadSizeMB  int64

	VirusScanner     string
	VirusTotalAPIKey string
	ImageScaler      string
	ImageMaxWidth    uint

	StorageBackend    string
	UploadDir         string
	GCSBucket         string
	S3Bucket          string
	S3Region          string
	AWSAccessKey      string
	AWSSecretKey      string
	ImgurClientID     string
	ImgurClientSecret string
	ImgurAlbum        string

	SentryDSN string
}

// Load reads the environment, after loading a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		AppEnv:        getEnv("APP_ENV", "development"),
		ClientURL:     getEnv("CLIENT_URL", ""),
		PublicURL:     getEnv("PUBLIC_URL", "http://localhost:8080"),

		DatabaseBackend: getEnv("DATABASE_BACKEND", "mongo"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getEnv("MONGO_DB", "nostalgia"),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getDuration("SESSION_TTL", 7*24*time.Hour),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),

		MaxBans:          int(getInt("MAX_BANS", 3)),
		DefaultPageLimit: getInt("DEFAULT_PAGE_LIMIT", 20),
		MaxUploadSizeMB:  getInt("MAX_UPLOAD_SIZE_MB", 10),

		VirusScanner:     strings.ToLower(getEnv("VIRUS_SCANNER", "none")),
		VirusTotalAPIKey: getEnv("VIRUSTOTAL_API_KEY", ""),
		ImageScaler:      strings.ToLower(getEnv("IMAGE_SCALER", "resize")),
		ImageMaxWidth:    uint(getInt("IMAGE_MAX_WIDTH", 1024)),

		StorageBackend:    strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		GCSBucket:         getEnv("GCS_BUCKET", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-west-1"),
		AWSAccessKey:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
		ImgurClientID:     getEnv("IMGUR_CLIENT_ID", ""),
		ImgurClientSecret: getEnv("IMGUR_CLIENT_SECRET", ""),
		ImgurAlbum:        getEnv("IMGUR_ALBUM", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
	return cfg, cfg.validate()
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("SESSION_SECRET is required")
		}
		c.SessionSecret = "development-session-secret"
	}

	switch c.DatabaseBackend {
	case "mongo", "memory":
	default:
		return fmt.Errorf("DATABASE_BACKEND must be mongo or memory, got %q", c.DatabaseBackend)
	}

	switch c.VirusScanner {
	case "none", "safesearch":
	case "virustotal":
		if c.VirusTotalAPIKey == "" {
			return fmt.Errorf("VIRUSTOTAL_API_KEY is required for VIRUS_SCANNER=virustotal")
		}
	default:
		return fmt.Errorf("unknown VIRUS_SCANNER %q", c.VirusScanner)
	}

	switch c.ImageScaler {
	case "none", "resize":
	default:
		return fmt.Errorf("unknown IMAGE_SCALER %q", c.ImageScaler)
	}

	switch c.StorageBackend {
	case "local":
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for STORAGE_BACKEND=gcs")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for STORAGE_BACKEND=s3")
		}
	case "imgur":
		if c.ImgurClientID == "" || c.ImgurClientSecret == "" {
			return fmt.Errorf("IMGUR_CLIENT_ID and IMGUR_CLIENT_SECRET are required for STORAGE_BACKEND=imgur")
		}
		if c.DatabaseBackend != "mongo" && !c.IsDevelopment() {
			return fmt.Errorf("STORAGE_BACKEND=imgur persists tokens and needs DATABASE_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil || n < 1 {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
