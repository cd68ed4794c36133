package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"oregano-scan/internal/classify"
	"oregano-scan/internal/hosting"
	"oregano-scan/internal/notify"
	"oregano-scan/internal/scan"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("oregano-scan")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "oregano-scan.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./captures", "Pending image storage directory")
		classifierType = fs.StringLong("classifier", "api", "Classifier backend: 'api' or 'gemini'")
		classifyURL    = fs.StringLong("classify-url", "", "Prediction API endpoint URL (required for 'api' backend)")
		imgbbURL       = fs.StringLong("imgbb-url", "https://api.imgbb.com/1/upload", "Image hosting upload endpoint")
		imgbbKey       = fs.StringLong("imgbb-key", "", "Image hosting API key (or set OREGANO_SCAN_IMGBB_KEY)")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		notifyURL      = fs.StringLong("notify-url", "", "Webhook URL for scan notifications (optional)")
		diseasesPath   = fs.StringLong("diseases", "", "Disease reference YAML seed file (optional)")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username, also the scan record owner (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("OREGANO_SCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := scan.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Seed the disease reference collection when a file was given
	if *diseasesPath != "" {
		n, err := scan.SeedDiseases(db, *diseasesPath)
		if err != nil {
			slog.Error("Failed to seed disease reference", "file", *diseasesPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Seeded disease reference", "file", *diseasesPath, "entries", n)
	}

	// Initialize classifier based on type
	var classifier classify.Classifier
	switch *classifierType {
	case "api":
		if *classifyURL == "" {
			slog.Error("Prediction API URL is required. Set --classify-url flag or OREGANO_SCAN_CLASSIFY_URL environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing prediction API classifier...", "url", *classifyURL)
		classifier, err = classify.NewAPI(*classifyURL)
		if err != nil {
			slog.Error("Failed to initialize classifier", "error", err)
			os.Exit(1)
		}
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini classifier...", "model", *geminiModel)
		classifier, err = classify.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid classifier type", "type", *classifierType, "valid", "api or gemini")
		os.Exit(1)
	}
	defer classifier.Close()

	// Initialize image host
	if *imgbbKey == "" {
		slog.Error("Image hosting API key is required. Set --imgbb-key flag or OREGANO_SCAN_IMGBB_KEY environment variable")
		os.Exit(1)
	}
	host, err := hosting.NewImgBB(*imgbbURL, *imgbbKey)
	if err != nil {
		slog.Error("Failed to initialize image host", "error", err)
		os.Exit(1)
	}

	// Initialize capture storage
	slog.Info("Initializing capture storage...")
	store, err := scan.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	captures := scan.NewCaptureStore(store)

	// Notifications go to the webhook when configured, the log otherwise
	var notifier notify.Notifier = notify.Log{}
	if *notifyURL != "" {
		notifier = notify.NewWebhook(*notifyURL)
	}

	// Initialize service and server
	service := scan.NewService(captures, classifier, host, db, notifier)
	basicAuth := scan.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := scan.NewServer(service, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
