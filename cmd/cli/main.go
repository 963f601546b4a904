package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/himanishpuri/sargam/pkg/logger"
	"github.com/himanishpuri/sargam/pkg/sargam"
	"github.com/spf13/cobra"
)

// Global flags
var (
	catalogDB  string
	tempDir    string
	sampleRate int
	tolerance  float64
	logLevel   string
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// createService creates a new Sargam service with configured options
func createService() (sargam.Service, error) {
	opts := []sargam.Option{
		sargam.WithTempDir(tempDir),
		sargam.WithSampleRate(sampleRate),
		sargam.WithTolerance(tolerance),
	}
	if catalogDB != "" {
		opts = append(opts, sargam.WithCatalogDB(catalogDB))
	}
	return sargam.NewService(opts...)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sargam",
		Short:         "Carnatic swaram transcription and raaga detection",
		Long:          banner + "\nTranscribe recordings and MIDI files into swarams and detect their raaga.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetLevel(logger.ParseLevel(logLevel))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&catalogDB, "catalog-db", getEnvOrDefault("SARGAM_CATALOG_DB", ""), "SQLite raaga catalog (env: SARGAM_CATALOG_DB, built-in catalog when empty)")
	pf.StringVar(&tempDir, "temp", getEnvOrDefault("SARGAM_TEMP_DIR", os.TempDir()), "Directory for temporary audio files (env: SARGAM_TEMP_DIR)")
	pf.IntVar(&sampleRate, "rate", getEnvInt("SARGAM_SAMPLE_RATE", 44100), "Sample rate audio is resampled to (env: SARGAM_SAMPLE_RATE)")
	pf.Float64Var(&tolerance, "tolerance", 10, "Swaram classification tolerance in cents")
	pf.StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")

	root.AddCommand(
		newTranscribeCmd(),
		newYouTubeCmd(),
		newDetectCmd(),
		newRaagasCmd(),
		newCatalogCmd(),
		newSpectrogramCmd(),
	)
	return root
}

const banner = `
  ____
 / ___|  __ _ _ __ __ _  __ _ _ __ ___
 \___ \ / _' | '__/ _' |/ _' | '_ ' _ \
  ___) | (_| | | | (_| | (_| | | | | | |
 |____/ \__,_|_|  \__, |\__,_|_| |_| |_|
                  |___/
        Carnatic Transcription CLI
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}
