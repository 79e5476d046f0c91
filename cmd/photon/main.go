package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/avocadolabs/photon/internal/api"
	"github.com/avocadolabs/photon/internal/flow"
	"github.com/avocadolabs/photon/internal/genai"
	"github.com/avocadolabs/photon/internal/shipping"
	"github.com/avocadolabs/photon/internal/store"
	"github.com/avocadolabs/photon/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Photon state data
	DefaultStateDir = "/var/lib/photon"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "photon.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Build module options
	storeOpts := buildStoreOptions(flags)
	shippingOpts := buildShippingOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping Photon with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "shipping", len(shippingOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	if err := run(flags, storeOpts, shippingOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("Photon failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Photon exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL      string
	StateDir         string
	OpenAIKey        string
	OpenAIModel      string
	ShippingUserID   string
	ShippingPassword string
	ShippingBaseURL  string
	APIAddr          string
	SessionIdle      string
}

// Flags holds command line flag values
type Flags struct {
	stateDir         *string
	dbDSN            *string
	openaiKey        *string
	openaiModel      *string
	shippingUserID   *string
	shippingPassword *string
	shippingBaseURL  *string
	apiAddr          *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StateDir:         os.Getenv("PHOTON_STATE_DIR"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      os.Getenv("OPENAI_MODEL"),
		ShippingUserID:   os.Getenv("SHIPPING_USER_ID"),
		ShippingPassword: os.Getenv("SHIPPING_PASSWORD"),
		ShippingBaseURL:  os.Getenv("SHIPPING_BASE_URL"),
		APIAddr:          os.Getenv("API_ADDR"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No PHOTON_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"PHOTON_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"SHIPPING_USER_ID_SET", config.ShippingUserID != "",
		"SHIPPING_BASE_URL", config.ShippingBaseURL,
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:         flag.String("state-dir", config.StateDir, "state directory for Photon data (overrides $PHOTON_STATE_DIR)"),
		dbDSN:            flag.String("db-dsn", config.DatabaseURL, "database DSN for session store (overrides $DATABASE_URL)"),
		openaiKey:        flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:      flag.String("openai-model", config.OpenAIModel, "OpenAI model name (overrides $OPENAI_MODEL)"),
		shippingUserID:   flag.String("shipping-user-id", config.ShippingUserID, "shipping provider user ID (overrides $SHIPPING_USER_ID)"),
		shippingPassword: flag.String("shipping-password", config.ShippingPassword, "shipping provider password (overrides $SHIPPING_PASSWORD)"),
		shippingBaseURL:  flag.String("shipping-base-url", config.ShippingBaseURL, "shipping provider base URL (overrides $SHIPPING_BASE_URL)"),
		apiAddr:          flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"shippingUserIDSet", *flags.shippingUserID != "",
		"apiAddr", *flags.apiAddr)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildShippingOptions constructs shipping provider configuration options
func buildShippingOptions(flags Flags) []shipping.Option {
	var shippingOpts []shipping.Option
	if *flags.shippingUserID != "" || *flags.shippingPassword != "" {
		shippingOpts = append(shippingOpts, shipping.WithCredentials(*flags.shippingUserID, *flags.shippingPassword))
	}
	if *flags.shippingBaseURL != "" {
		shippingOpts = append(shippingOpts, shipping.WithBaseURL(*flags.shippingBaseURL))
	}
	return shippingOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

// newStore builds the session store from the configured options.
func newStore(storeOpts []store.Option, dsn string) (store.Store, error) {
	if len(storeOpts) == 0 {
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		return store.NewPostgresStore(storeOpts...)
	}
	return store.NewSQLiteStore(storeOpts...)
}

// run wires the modules together and serves until interrupted.
func run(flags Flags, storeOpts []store.Option, shippingOpts []shipping.Option, genaiOpts []genai.Option, apiOpts []api.Option) error {
	st, err := newStore(storeOpts, *flags.dbDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	shippingClient, err := shipping.NewClient(shippingOpts...)
	if err != nil {
		return err
	}

	genaiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return err
	}

	idleTimeout := util.ParseDurationEnv("SESSION_IDLE_TIMEOUT", flow.DefaultIdleTimeout)
	sessions := flow.NewSessionManager(st, flow.WithIdleTimeout(idleTimeout))
	defer sessions.Stop()

	engine := flow.NewEngine(shippingClient, genaiClient)
	server := api.NewServer(engine, sessions, apiOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}
