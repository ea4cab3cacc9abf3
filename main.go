package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var config Config
var azureClient *AzureClient

// Root command
var rootCmd = &cobra.Command{
	Use:   "azure-sub-inventory",
	Short: "A CLI tool to inventory Azure subscriptions, their plan types and owners",
	Long: `A command-line tool that lists every subscription visible in an Azure tenant,
classifies each subscription's commercial plan, resolves an owner identity where
the APIs allow it, and reports EA transfer eligibility. Read-only: no write
calls are ever made.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInventory(); err != nil {
			log.Fatal().Err(err).Msg("inventory run failed")
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("azure-sub-inventory %s\n", Version)
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(versionCmd)

	// Add flags
	rootCmd.PersistentFlags().String("access-token", "", "Azure management access token")
	rootCmd.PersistentFlags().String("columns", columnsFocused, "report column set: focused or extended")
	rootCmd.PersistentFlags().String("out-dir", ".", "directory for report files")
	rootCmd.PersistentFlags().Bool("json", false, "also write a structured JSON report document")
	rootCmd.PersistentFlags().Bool("xlsx", false, "also write an XLSX workbook")
	rootCmd.PersistentFlags().Bool("porcelain", false, "print tab-separated rows instead of a table")
	rootCmd.PersistentFlags().Int("max-concurrency", 4, "maximum concurrent subscription lookups")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	for _, flag := range []string{"access-token", "columns", "out-dir", "json", "xlsx", "porcelain", "max-concurrency", "log-level"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			log.Fatal().Err(err).Str("flag", flag).Msg("failed to bind flag")
		}
	}
}

func initConfig() {
	// Read from environment variables; a local .env file is honored when
	// present.
	_ = godotenv.Load()
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	setupLogging(viper.GetString("log-level"))

	config = Config{
		AccessToken:    viper.GetString("access-token"),
		Columns:        viper.GetString("columns"),
		OutDir:         viper.GetString("out-dir"),
		WriteJSON:      viper.GetBool("json"),
		WriteXLSX:      viper.GetBool("xlsx"),
		Porcelain:      viper.GetBool("porcelain"),
		MaxConcurrency: viper.GetInt("max-concurrency"),
	}

	if config.AccessToken == "" {
		config.AccessToken = os.Getenv("AZURE_ACCESS_TOKEN")
	}
	if config.AccessToken == "" {
		log.Fatal().Msg("Access token is required. Set via --access-token flag or AZURE_ACCESS_TOKEN environment variable")
	}
	if config.Columns != columnsFocused && config.Columns != columnsExtended {
		log.Fatal().Str("columns", config.Columns).Msg("columns must be focused or extended")
	}

	azureClient = &AzureClient{
		Config:     config,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(parsed).With().Timestamp().Logger()
}

func runInventory() error {
	now := time.Now()

	spinner := NewSpinner("querying Azure")
	if !config.Porcelain {
		go spinner.Start()
	}

	subs, err := azureClient.ListSubscriptions()
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}
	log.Info().Int("count", len(subs)).Msg("subscriptions visible")

	// The billing hint and the raw account list are tenant-level; fetch once.
	accounts, err := azureClient.ListBillingAccounts()
	if err != nil {
		log.Warn().Err(err).Msg("billing accounts unavailable, classifying without tenant hint")
		accounts = nil
	}
	hint := deriveBillingHint(accounts)

	rows := azureClient.BuildReport(subs, hint)
	spinner.Stop()

	if config.Porcelain {
		renderPorcelain(os.Stdout, rows, config.Columns)
	} else {
		renderTable(os.Stdout, rows, config.Columns)
	}

	csvPath := filepath.Join(config.OutDir, reportFileName("subscription-inventory", "csv", now))
	if err := writeReportFile(csvPath, func(f *os.File) error {
		return writeCSV(f, rows, config.Columns)
	}); err != nil {
		return err
	}
	log.Info().Str("path", csvPath).Msg("CSV report written")

	if config.WriteJSON {
		doc := BuildDocument(rows, hint, accounts, now)
		jsonPath := filepath.Join(config.OutDir, reportFileName("subscription-inventory", "json", now))
		if err := writeReportFile(jsonPath, func(f *os.File) error {
			return writeJSON(f, doc)
		}); err != nil {
			return err
		}
		log.Info().Str("path", jsonPath).Str("runId", doc.RunID).Msg("JSON report written")
	}

	if config.WriteXLSX {
		xlsxPath := filepath.Join(config.OutDir, reportFileName("subscription-inventory", "xlsx", now))
		if err := writeReportFile(xlsxPath, func(f *os.File) error {
			return writeXLSX(f, rows, config.Columns)
		}); err != nil {
			return err
		}
		log.Info().Str("path", xlsxPath).Msg("XLSX report written")
	}

	return nil
}

func writeReportFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
