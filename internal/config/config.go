// Package config centralizes how teradrop reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Blob storage backends.
const (
	BlobBackendDisk = "disk"
	BlobBackendS3   = "s3"
)

// Config represents runtime configuration for the service.
type Config struct {
	Port         int
	DatabaseURL  string
	UploadDir    string
	MaxFileSize  int64
	AllowedTypes []string

	BlobBackend string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	// RedisAddr enables queued reclaim of orphaned blobs when non-empty.
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	WorkerConcurrency int

	LogLevel        slog.Level
	LogFormat       string
	ShutdownTimeout time.Duration
}

const (
	defaultPort         = 3000
	defaultDatabaseURL  = "mongodb://localhost:27017/tera-logic"
	defaultUploadDir    = "uploads"
	defaultMaxFileSize  = 5 << 20 // 5 MiB
	defaultAllowedTypes = "image/jpeg,image/png,image/gif,image/webp,application/pdf,image/jpg,text/plain"
	defaultS3Bucket     = "teradrop"
	defaultS3Region     = "us-east-1"
	defaultWorkerCount  = 2
	defaultShutdown     = 5 * time.Second
)

// Load reads configuration from environment variables falling back to
// defaults. A .env file in the working directory is applied first without
// overriding variables that are already set.
func Load() (*Config, error) {
	loadDotEnv(".env")
	cfg := &Config{
		Port:              parseInt("PORT", defaultPort),
		DatabaseURL:       readEnv("DATABASE_URL", defaultDatabaseURL),
		UploadDir:         readEnv("UPLOAD_DIR", defaultUploadDir),
		MaxFileSize:       parseInt64("MAX_FILE_BYTES", defaultMaxFileSize),
		AllowedTypes:      parseList("ALLOWED_TYPES", defaultAllowedTypes),
		BlobBackend:       strings.ToLower(readEnv("BLOB_BACKEND", BlobBackendDisk)),
		S3Endpoint:        readEnv("S3_ENDPOINT", ""),
		S3AccessKey:       readEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       readEnv("S3_SECRET_KEY", ""),
		S3Bucket:          readEnv("S3_BUCKET", defaultS3Bucket),
		S3Region:          readEnv("S3_REGION", defaultS3Region),
		S3UseSSL:          parseBool("S3_USE_SSL", false),
		RedisAddr:         readEnv("REDIS_ADDR", ""),
		RedisPassword:     readEnv("REDIS_PASSWORD", ""),
		RedisDB:           parseInt("REDIS_DB", 0),
		WorkerConcurrency: parseInt("WORKER_CONCURRENCY", defaultWorkerCount),
		LogLevel:          parseLevel("LOG_LEVEL", slog.LevelInfo),
		LogFormat:         strings.ToLower(readEnv("LOG_FORMAT", "text")),
		ShutdownTimeout:   parseDuration("SHUTDOWN_TIMEOUT", defaultShutdown),
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT: %d out of range", cfg.Port)
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = defaultWorkerCount
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdown
	}
	switch cfg.BlobBackend {
	case BlobBackendDisk:
	case BlobBackendS3:
		if cfg.S3Endpoint == "" {
			return nil, fmt.Errorf("S3_ENDPOINT: required when BLOB_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("BLOB_BACKEND: unsupported value %q", cfg.BlobBackend)
	}
	return cfg, nil
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return ":" + strconv.Itoa(c.Port)
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadDotEnv copies KEY=VALUE lines from path into the environment. Blank
// lines and # comments are skipped; surrounding quotes are stripped.
func loadDotEnv(path string) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, val)
		}
	}
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseLevel(key string, def slog.Level) slog.Level {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return def
	}
	return level
}
