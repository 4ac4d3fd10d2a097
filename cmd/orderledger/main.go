package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"orderledger/internal/config"
	"orderledger/internal/journal"
	"orderledger/internal/ledger"
	"orderledger/internal/log"
	"orderledger/internal/shopify"
	"orderledger/internal/storage"
	"orderledger/internal/tui/watch"
	"orderledger/internal/webhook"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve", "start":
		os.Exit(runServe(args))
	case "setup-webhooks":
		os.Exit(runSetupWebhooks(args))
	case "deliveries":
		os.Exit(runDeliveries(args))
	case "version":
		fmt.Printf("orderledger version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`orderledger - Shopify order webhook to Google Sheets ledger

Usage:
  orderledger <command> [flags]

Commands:
  serve            Run the webhook intake server in the foreground
  setup-webhooks   Register order webhook subscriptions with Shopify
  deliveries       Show recent webhook deliveries from the local journal
  version          Show version information
  help             Show this help message

Common flags:
  --config PATH    Path to configuration file (default: config.yaml,
                   or $ORDERLEDGER_CONFIG)
`)
}

func loadConfig(path string) (*config.Config, error) {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("ORDERLEDGER_CONFIG")
	}
	if path == "" {
		path = "config.yaml"
	}
	return config.Load(path)
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("orderledger starting", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open delivery journal", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()
	jnl := journal.New(db)
	logger.Info("delivery journal opened", "path", cfg.State.Path)

	writer, err := ledger.NewWriter(ctx, ledger.Config{
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		SheetName:       cfg.Sheets.SheetName,
		CredentialsFile: cfg.Sheets.CredentialsFile,
	}, log.WithComponent("ledger"))
	if err != nil {
		logger.Error("failed to create ledger writer", "error", err)
		return 1
	}

	// Idempotent header bootstrap; failing here usually means bad
	// credentials or spreadsheet id, so surface it before serving.
	if err := writer.EnsureHeaders(ctx); err != nil {
		logger.Error("failed to initialize ledger headers", "error", err)
		return 1
	}

	srv := webhook.New(webhook.Config{
		Listen:          cfg.Webhook.Listen,
		Secret:          cfg.Webhook.Secret,
		SignatureHeader: cfg.Webhook.SignatureHeader,
		TopicHeader:     cfg.Webhook.TopicHeader,
		MaxBodySize:     cfg.Webhook.MaxBodySize,
		WriteAttempts:   cfg.Webhook.WriteAttempts,
		RetryBackoff:    cfg.Webhook.RetryBackoff,
	}, writer, jnl, log.WithComponent("webhook"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil && err != context.Canceled {
			errCh <- err
		}
	}()

	logger.Info("orderledger running (press Ctrl+C to stop)", "listen", cfg.Webhook.Listen)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("webhook server failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("orderledger stopped")
	return 0
}

func runSetupWebhooks(args []string) int {
	fs := flag.NewFlagSet("setup-webhooks", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	callbackURL := fs.String("callback-url", "", "Webhook callback URL (overrides shopify.callback_url)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if *callbackURL != "" {
		cfg.Shopify.CallbackURL = *callbackURL
	}
	if err := cfg.ValidateSetup(); err != nil {
		fmt.Fprintf(os.Stderr, "Setup configuration incomplete: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	registrar := shopify.NewRegistrar(
		cfg.Shopify.ShopDomain,
		cfg.Shopify.AccessToken,
		cfg.Shopify.APIVersion,
		log.WithComponent("setup"),
	)

	if err := registrar.EnsureWebhooks(context.Background(), cfg.Shopify.CallbackURL, shopify.OrderTopics); err != nil {
		fmt.Fprintf(os.Stderr, "Webhook registration failed: %v\n", err)
		return 1
	}

	fmt.Printf("Webhooks registered for %d topics at %s\n", len(shopify.OrderTopics), cfg.Shopify.CallbackURL)
	return 0
}

func runDeliveries(args []string) int {
	fs := flag.NewFlagSet("deliveries", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	limit := fs.Int("limit", 20, "Number of deliveries to show")
	watchMode := fs.Bool("watch", false, "Live TUI view, refreshed continuously")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open delivery journal: %v\n", err)
		return 1
	}
	defer db.Close()
	jnl := journal.New(db)

	if *watchMode {
		p := tea.NewProgram(watch.New(jnl))
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Watch TUI failed: %v\n", err)
			return 1
		}
		return 0
	}

	deliveries, err := jnl.Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list deliveries: %v\n", err)
		return 1
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tTOPIC\tORDER\tSTATUS\tTRIES\tERROR")
	for _, d := range deliveries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			d.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
			d.Topic,
			d.OrderID,
			d.Status,
			d.Attempts,
			d.LastError,
		)
	}
	w.Flush()
	return 0
}
