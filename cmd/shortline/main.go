// ABOUTME: Entry point for the shortline SMS shortcode gateway
// ABOUTME: Wires config, store, sessions, engine, delivery gateway, and the webhook server

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/prashlkam/shortline/internal/catalog"
	"github.com/prashlkam/shortline/internal/config"
	"github.com/prashlkam/shortline/internal/dedupe"
	"github.com/prashlkam/shortline/internal/engine"
	"github.com/prashlkam/shortline/internal/gateway"
	"github.com/prashlkam/shortline/internal/ingest"
	"github.com/prashlkam/shortline/internal/session"
	"github.com/prashlkam/shortline/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
     _                _   _ _
 ___| |__   ___  _ __| |_| (_)_ __   ___
/ __| '_ \ / _ \| '__| __| | | '_ \ / _ \
\__ \ | | | (_) | |  | |_| | | | | |  __/
|___/_| |_|\___/|_|   \__|_|_|_| |_|\___|
`

// getConfigPath returns the path to the shortline config file.
// Priority: SHORTLINE_CONFIG env var > ./shortline.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SHORTLINE_CONFIG"); envPath != "" {
		return envPath
	}
	return "shortline.yaml"
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: shortline <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the webhook server")
		fmt.Println("  init     Write a starter config file")
		fmt.Println("  health   Check server health")
		os.Exit(1)
	}

	// Credentials referenced from the config as ${VAR} may live in a .env file
	godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Gateway:  %s\n", cfg.Gateway.Provider)
	fmt.Println()

	logger.Info("starting shortline",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"gateway", cfg.Gateway.Provider,
	)

	// Persistence
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	// Command catalog lives in the store; seed the builtin set on first start
	if err := db.SeedCommands(ctx, catalog.Builtin()); err != nil {
		return fmt.Errorf("seeding commands: %w", err)
	}
	commands, err := db.ListCommands(ctx)
	if err != nil {
		return fmt.Errorf("loading commands: %w", err)
	}
	cat, err := catalog.New(commands)
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}
	logger.Info("command catalog loaded", "commands", cat.Len())

	// Sessions and delivery
	sessions := session.NewMemoryStore(cfg.Session.TTL)
	defer sessions.Close()

	sender, err := gateway.New(cfg.Gateway)
	if err != nil {
		return fmt.Errorf("creating delivery gateway: %w", err)
	}

	// Engine and webhook boundary
	eng := engine.New(sessions, cat, db, db, engine.StaticBalance{}, logger)
	attempts := dedupe.New(cfg.Dedupe.TTL, cfg.Dedupe.MaxSize)
	handler := ingest.New(eng, sessions, db, sender, attempts, cfg.Webhook.Secret, logger)

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webhook server listening", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	return nil
}

const starterConfig = `server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./data/shortline.db"

session:
  ttl: "1h"

dedupe:
  ttl: "10m"
  max_size: 10000

webhook:
  secret: "${WEBHOOK_SECRET}"

gateway:
  provider: "twilio"   # twilio or webhook
  twilio:
    account_sid: "${TWILIO_ACCOUNT_SID}"
    auth_token: "${TWILIO_AUTH_TOKEN}"
    from: "${TWILIO_FROM}"
  outbound:
    url: ""
    api_key: "${GATEWAY_API_KEY}"

logging:
  level: "info"
  format: "text"
`

func runInit() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(starterConfig), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Wrote starter config to %s\n", configPath)
	return nil
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
