package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/joho/godotenv/autoload"

	"readinglog/internal/logger"
	"readinglog/internal/lookup"
	"readinglog/internal/response"
	"readinglog/internal/server"
	"readinglog/internal/storage/records"
)

func getEnvOrDefault(key, default_ string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}

	return default_
}

func getBoolEnv(key string, default_ bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "yes", "on", "true", "1":
		return true
	case "no", "off", "false", "0":
		return false
	}

	return default_
}

var (
	logLevel  = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	bindAddr  = getEnvOrDefault("BIND_ADDR", ":8080")
	debugMode = getBoolEnv("DEBUG_MODE", false)
	staticDir = getEnvOrDefault("STATIC_DIR", "public")
	booksKey  = os.Getenv("GOOGLE_BOOKS_API_KEY")
	booksRps  = getEnvOrDefault("GOOGLE_BOOKS_RPS", "5")
	redisUrl  = os.Getenv("REDIS_URL")
	lookupTtl = getEnvOrDefault("LOOKUP_CACHE_TTL", "24h")
	storeCfg  = records.Config{
		Backend:         getEnvOrDefault("STORE_BACKEND", records.BackendSQLite),
		AutoMigrate:     getBoolEnv("AUTO_MIGRATE", true),
		DatabaseUrl:     os.Getenv("DATABASE_URL"),
		SQLitePath:      getEnvOrDefault("SQLITE_PATH", "data/readinglog.db"),
		SpreadsheetId:   os.Getenv("SPREADSHEET_ID"),
		SheetName:       getEnvOrDefault("SHEET_NAME", "Sheet1"),
		CredentialsJson: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	lvl, err := logger.ParseLevel(logLevel)
	logger.SetupSLog(lvl, path.Dir(path.Dir(path.Dir(thisFile))), middleware.RequestIDKey)

	if err != nil {
		slog.Error("Invalid log level specified in LOG_LEVEL, one of debug, info, warn or error expected")
		os.Exit(1)
	}

	rps, err := strconv.Atoi(booksRps)
	if err != nil || rps < 1 {
		slog.Error("GOOGLE_BOOKS_RPS must be a positive integer, got " + booksRps)
		os.Exit(1)
	}

	store, closeStore, err := records.Open(context.Background(), storeCfg, slog.Default())
	if err != nil {
		slog.Error("Failed to open " + storeCfg.Backend + " record store: " + err.Error())
		os.Exit(1)
	}

	slog.Info("Using " + storeCfg.Backend + " record store")

	booksClient, err := lookup.NewClient(context.Background(), booksKey, rps, slog.Default())
	if err != nil {
		slog.Error("Failed to create Google Books client: " + err.Error())
		closeStore()
		os.Exit(1)
	}

	var searcher lookup.Searcher = booksClient

	if redisUrl != "" {
		ttl, err := time.ParseDuration(lookupTtl)
		if err != nil {
			slog.Error("Failed to parse LOOKUP_CACHE_TTL: " + err.Error())
			os.Exit(1)
		}

		cache, err := lookup.NewRedisCache(redisUrl)
		if err != nil {
			slog.Error("Failed to parse REDIS_URL: " + err.Error())
			os.Exit(1)
		}

		searcher = &lookup.Cached{Next: searcher, Cache: cache, TTL: ttl, Logger: slog.Default()}
		slog.Info("Caching book lookups in redis for " + ttl.String())
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Mount("/api", server.Handler(store, searcher, &response.Responder{DebugMode: debugMode}))
	server.Static(r, staticDir)

	slog.Info("Listening on " + bindAddr)
	slog.Error("aborting: " + http.ListenAndServe(bindAddr, r).Error())
	closeStore()
	os.Exit(1)
}
