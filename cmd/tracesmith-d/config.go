package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAddr    = "127.0.0.1:8098"
	defaultBackend = "sqlite"
)

type Config struct {
	DBPath    string
	Backend   string
	RedisAddr string
	Addr      string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	defaultDBPath := filepath.Join(cwd, "tracesmith.db")

	dbPath := envOrDefault("TRACESMITH_DB_PATH", defaultDBPath)
	backend := envOrDefault("TRACESMITH_BACKEND", defaultBackend)
	redisAddr := envOrDefault("TRACESMITH_REDIS_ADDR", "127.0.0.1:6379")
	addr := addrFromEnv(defaultAddr)

	flagSet := flag.NewFlagSet("tracesmith-d", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDB := flagSet.String("db", dbPath, "path to SQLite database")
	flagBackend := flagSet.String("backend", backend, "dataset store backend: sqlite|redis")
	flagRedis := flagSet.String("redis", redisAddr, "redis address when backend=redis")
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	config := Config{
		DBPath:    resolvePath(*flagDB, cwd),
		Backend:   strings.ToLower(strings.TrimSpace(*flagBackend)),
		RedisAddr: strings.TrimSpace(*flagRedis),
		Addr:      strings.TrimSpace(*flagAddr),
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}

	switch config.Backend {
	case "sqlite":
		if config.DBPath == "" {
			return Config{}, errors.New("backend=sqlite requires db")
		}
	case "redis":
		if config.RedisAddr == "" {
			return Config{}, errors.New("backend=redis requires redis")
		}
	default:
		return Config{}, fmt.Errorf("unsupported backend: %s", config.Backend)
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("TRACESMITH_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("TRACESMITH_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
