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

	_ "github.com/lib/pq"
	"github.com/npezzotti/go-office/internal/api"
	"github.com/npezzotti/go-office/internal/config"
	"github.com/npezzotti/go-office/internal/database"
	"github.com/npezzotti/go-office/internal/server"
	"github.com/npezzotti/go-office/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	presenceWindow time.Duration
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.DurationVar(&presenceWindow, "presence-window", config.DefaultPresenceWindow, "how recently a user must have been seen to count as present")
	flag.Parse()

	logger := log.New(os.Stderr, "[go-office] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins, presenceWindow)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgOfficeRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	officeServer, err := server.NewOfficeServer(logger, dbConn, statsUpdater, cfg.PresenceWindow)
	if err != nil {
		logger.Fatal("new office server:", err)
	}

	srv, err := api.NewOfficeApp(mux, logger, officeServer, dbConn, cfg)
	if err != nil {
		logger.Fatal("new office app:", err)
	}

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

	logger.Println("shutting down office server...")
	if err := officeServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("office server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
