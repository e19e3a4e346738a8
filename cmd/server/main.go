package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"huddle/internal/api"
	"huddle/internal/config"
	"huddle/internal/database"
	"huddle/internal/server"
	"huddle/internal/stats"
)

const defaultSigningKey = "5DhYp0Vne4/zEKwNyaWL3ouyBMJrBsNF64kYKBdJv7w="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var (
	addr           string
	dsn            string
	signingKey     string
	migrationsPath string
	allowedOrigins stringSliceFlag
)

func main() {
	// best effort, the file is optional outside development
	_ = godotenv.Load()

	flag.StringVar(&addr, "addr", envOr("HUDDLE_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("HUDDLE_DSN", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", envOr("HUDDLE_SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.StringVar(&migrationsPath, "migrations", envOr("HUDDLE_MIGRATIONS", "file://db/migrations"), "migration source URL")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[huddle] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgHuddleRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(migrationsPath); err != nil {
		logger.Fatal("migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	server.RegisterMetrics(statsUpdater)

	hub := server.NewHub(logger, dbConn, statsUpdater)

	srv := api.NewHuddleApp(mux, logger, hub, dbConn, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	hub.Shutdown()

	logger.Println("shutdown complete")
}
