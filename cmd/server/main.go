//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/himanishpuri/sargam/pkg/logger"
	"github.com/himanishpuri/sargam/pkg/sargam"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://localhost:3002",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:3001",
	"http://127.0.0.1:3002",
}

var (
	port           int
	catalogDB      string
	tempDir        string
	sampleRate     int
	defaultTonic   float64
	allowedOrigins string
	logRequests    bool
)

func init() {
	flag.IntVar(&port, "port", getEnvInt("PORT", 8000), "HTTP server port")
	flag.StringVar(&catalogDB, "catalog-db", getEnvOrDefault("SARGAM_CATALOG_DB", ""), "Path to SQLite raaga catalog (built-in catalog when empty)")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("SARGAM_TEMP_DIR", os.TempDir()), "Temporary directory")
	flag.IntVar(&sampleRate, "rate", getEnvInt("SARGAM_SAMPLE_RATE", 44100), "Audio sample rate")
	flag.Float64Var(&defaultTonic, "sruti", sargam.DefaultTonic, "Default tonic (Sa) in Hz")
	flag.StringVar(&allowedOrigins, "origins", getEnvOrDefault("CORS_ORIGINS", strings.Join(defaultOrigins, ",")), "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&logRequests, "log-requests", true, "Log every HTTP request")
}

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

func parseOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	opts := []sargam.Option{
		sargam.WithTempDir(tempDir),
		sargam.WithSampleRate(sampleRate),
		sargam.WithDefaultTonic(defaultTonic),
	}
	if catalogDB != "" {
		opts = append(opts, sargam.WithCatalogDB(catalogDB))
	}

	service, err := sargam.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		CatalogDB:      catalogDB,
		TempDir:        tempDir,
		SampleRate:     sampleRate,
		AllowedOrigins: parseOrigins(allowedOrigins),
		LogRequests:    logRequests,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(service, config)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
