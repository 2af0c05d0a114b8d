package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Backend names accepted by Open.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config selects and configures a cache backend.
type Config struct {
	Backend string

	// Dir is the FileCache directory; empty uses DefaultDir.
	Dir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// ConfigFromEnv reads the backend configuration from the environment:
//
//	LABELPAL_CACHE             none, file, redis or mongo (default file)
//	LABELPAL_CACHE_DIR         file cache directory
//	REDIS_HOST, REDIS_PORT     redis address (default 127.0.0.1:6379)
//	REDIS_PASS, REDIS_DB       redis credentials and database
//	MONGO_URI                  mongodb connection string
//	MONGO_DB, MONGO_COLLECTION mongodb location (default labelpal, cache)
func ConfigFromEnv() Config {
	cfg := Config{
		Backend:         envOr("LABELPAL_CACHE", BackendFile),
		Dir:             os.Getenv("LABELPAL_CACHE_DIR"),
		RedisAddr:       envOr("REDIS_HOST", "127.0.0.1") + ":" + envOr("REDIS_PORT", "6379"),
		RedisPassword:   os.Getenv("REDIS_PASS"),
		RedisPrefix:     "labelpal:",
		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDatabase:   envOr("MONGO_DB", "labelpal"),
		MongoCollection: envOr("MONGO_COLLECTION", "cache"),
	}
	// ignore parse errors, default 0
	if n, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil && n >= 0 {
		cfg.RedisDB = n
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Open creates the backend described by cfg.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	switch cfg.Backend {
	case BackendNone:
		return NewNullCache(), nil
	case "", BackendFile:
		dir := cfg.Dir
		if dir == "" {
			d, err := DefaultDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}
		c, err := NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("%w: redis address", ErrMissingConfig)
		}
		c, err := OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return c, nil
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("%w: MONGO_URI", ErrMissingConfig)
		}
		c, err := OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, fmt.Errorf("open mongo cache: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}

// DefaultDir returns the result cache directory following the XDG layout
// (~/.cache/labelpal/results).
func DefaultDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "labelpal", "results"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "labelpal", "results"), nil
}
