package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"runtime"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"readinglog/internal/importer"
	"readinglog/internal/logger"
	"readinglog/internal/storage/records"
	"readinglog/internal/types"
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
	logLevel = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	storeCfg = records.Config{
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

var (
	feed     string
	status   string
	maxPages int
	dryRun   bool
)

var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Import books from an OPDS catalog",
	Long: `Walk an OPDS 1 acquisition feed, following its "next" links, and save every entry that
carries an ISBN as a reading record. Records whose ISBN is already stored are skipped.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		feedUrl, err := url.Parse(feed)
		if err != nil || feedUrl.Scheme == "" || feedUrl.Host == "" {
			return fmt.Errorf("--feed must be an absolute URL, got %q", feed)
		}

		opds := &importer.OPDS{
			Client:   &http.Client{Timeout: 30 * time.Second},
			Logger:   slog.Default(),
			Status:   status,
			MaxPages: maxPages,
		}

		if dryRun {
			res, err := opds.Import(cmd.Context(), feedUrl, &importer.LoggerConsumer{Logger: slog.Default()})
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			slog.Info(fmt.Sprintf("Dry run went through %d pages, %d entries, %d skipped", res.Pages, res.Entries, res.Skipped))
			return nil
		}

		store, closeStore, err := records.Open(cmd.Context(), storeCfg, slog.Default())
		if err != nil {
			return fmt.Errorf("opening %s record store: %w", storeCfg.Backend, err)
		}
		defer closeStore()

		consumer := &importer.StoringConsumer{Logger: slog.Default(), Store: store}

		res, err := opds.Import(cmd.Context(), feedUrl, consumer)
		if err != nil {
			return fmt.Errorf("import failed after saving %d records: %w", consumer.Saved, err)
		}

		slog.Info(fmt.Sprintf("Imported %d records from %d pages (%d already stored, %d entries without ISBN)",
			consumer.Saved, res.Pages, consumer.Duplicates, res.Skipped))
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&feed, "feed", os.Getenv("OPDS_FEED"), "OPDS acquisition feed URL (env OPDS_FEED)")
	rootCmd.Flags().StringVar(&status, "status", types.StatusUnread, "reading status given to imported records")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 50, "stop after this many feed pages")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log parsed records instead of saving them")
}

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	lvl, err := logger.ParseLevel(logLevel)
	logger.SetupSLog(lvl, path.Dir(path.Dir(path.Dir(thisFile))), nil)

	if err != nil {
		slog.Error("Invalid log level specified in LOG_LEVEL, one of debug, info, warn or error expected")
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
