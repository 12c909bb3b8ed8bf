package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// AppConfig is everything the process reads from the environment.
type AppConfig struct {
	Port            string
	DBDriver        string
	DBDSN           string
	LogLevel        string
	LogFormat       string
	JWTSecret       string
	RedisAddress    string
	StorageBackend  string
	UploadDir       string
	GCSBucket       string
	PhoneRegion     string
	DispatchRetries int
}

// Load reads .env (if present) and then the process environment.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv builds an AppConfig from the current environment only.
func FromEnv() AppConfig {
	cfg := AppConfig{
		Port:            getEnv("PORT", "8080"),
		DBDriver:        strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBDSN:           os.Getenv("DB_DSN"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RedisAddress:    os.Getenv("REDIS_ADDRESS"),
		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		GCSBucket:       os.Getenv("GCS_BUCKET"),
		PhoneRegion:     strings.ToUpper(getEnv("PHONE_REGION", "IN")),
		DispatchRetries: 5,
	}
	if cfg.DBDriver == "sqlite" && cfg.DBDSN == "" {
		cfg.DBDSN = "crusher.db"
	}
	if v := os.Getenv("DISPATCH_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DispatchRetries = n
		} else {
			log.Printf("[CONFIG] ignoring invalid DISPATCH_RETRIES=%q", v)
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// OpenDatabase connects to postgres or sqlite depending on cfg.DBDriver.
func OpenDatabase(cfg AppConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required for postgres")
		}
		return gorm.Open(postgres.Open(cfg.DBDSN), gcfg)
	case "sqlite":
		return OpenSQLite(cfg.DBDSN, gcfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// OpenSQLite opens a single-connection sqlite database with foreign keys on.
// One connection serializes writers, which sqlite needs anyway.
func OpenSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	if gcfg == nil {
		gcfg = &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), gcfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
