package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BTreeMap/TriagePipe/internal/api"
	"github.com/BTreeMap/TriagePipe/internal/crypto"
	"github.com/BTreeMap/TriagePipe/internal/flow"
	"github.com/BTreeMap/TriagePipe/internal/protocol"
	"github.com/BTreeMap/TriagePipe/internal/store"
	"github.com/BTreeMap/TriagePipe/internal/util"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for TriagePipe state data
	DefaultStateDir = "/var/lib/triagepipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "triagepipe.db"
	// DefaultKeyID is the key identifier used when none is configured
	DefaultKeyID = "chat-key-1"
)

func main() {
	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)
	initializeLogger(*flags.debug)

	if err := run(flags); err != nil {
		slog.Error("TriagePipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("TriagePipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DbDriver     string
	DatabaseURL  string
	StateDir     string
	KeyID        string
	KeyBase64    string
	MasterSecret string
	APIAddr      string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDriver     *string
	dbDSN        *string
	keyID        *string
	keyBase64    *string
	masterSecret *string
	apiAddr      *string
	debug        *bool
}

// initializeLogger sets up structured logging.
func initializeLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		DbDriver:     os.Getenv("TRIAGEPIPE_DB_DRIVER"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     os.Getenv("TRIAGEPIPE_STATE_DIR"),
		KeyID:        os.Getenv("CHAT_KEY_ID"),
		KeyBase64:    os.Getenv("CHAT_KEY_BASE64"),
		MasterSecret: os.Getenv("CHAT_MASTER_SECRET"),
		APIAddr:      os.Getenv("API_ADDR"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.KeyID == "" {
		config.KeyID = DefaultKeyID
	}
	// If no database URL is provided, default to SQLite in the state directory.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
	}

	slog.Debug("environment variables loaded",
		"TRIAGEPIPE_DB_DRIVER", config.DbDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"TRIAGEPIPE_STATE_DIR", config.StateDir,
		"CHAT_KEY_ID", config.KeyID,
		"CHAT_KEY_BASE64_SET", config.KeyBase64 != "",
		"CHAT_MASTER_SECRET_SET", config.MasterSecret != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for TriagePipe data (overrides $TRIAGEPIPE_STATE_DIR)"),
		dbDriver:     flag.String("db-driver", config.DbDriver, "conversation store driver: sqlite3, postgres or memory (overrides $TRIAGEPIPE_DB_DRIVER)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "conversation store DSN (overrides $DATABASE_URL)"),
		keyID:        flag.String("key-id", config.KeyID, "chat key identifier for logging and correlation (overrides $CHAT_KEY_ID)"),
		keyBase64:    flag.String("key-base64", config.KeyBase64, "base64 32-byte chat key material (overrides $CHAT_KEY_BASE64)"),
		masterSecret: flag.String("master-secret", config.MasterSecret, "master secret for HKDF key derivation when no key material is given (overrides $CHAT_MASTER_SECRET)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		debug:        flag.Bool("debug", util.ParseBoolEnv("TRIAGEPIPE_DEBUG", false), "enable debug logging (overrides $TRIAGEPIPE_DEBUG)"),
	}
	flag.Parse()
	return flags
}

// loadKey builds the shared chat key from explicit material or derives it
// from the configured master secret.
func loadKey(flags Flags) (crypto.Key, error) {
	if *flags.keyBase64 != "" {
		return crypto.KeyFromBase64(*flags.keyID, *flags.keyBase64)
	}
	return crypto.DeriveKey([]byte(*flags.masterSecret), *flags.keyID)
}

// buildStore selects the conversation store backend.
func buildStore(flags Flags, ttl store.Option) (store.Store, error) {
	switch *flags.dbDriver {
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN), ttl)
	case "memory":
		return store.NewInMemoryStore(ttl), nil
	default:
		return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN), ttl)
	}
}

func run(flags Flags) error {
	key, err := loadKey(flags)
	if err != nil {
		return err
	}
	slog.Info("Chat key loaded", "key", key)

	ttl := store.WithTTL(util.ParseDurationEnv("TRIAGEPIPE_STATE_TTL", store.DefaultStateTTL))
	st, err := buildStore(flags, ttl)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := flow.NewEngine(st, nil, nil)
	svc := protocol.NewService(engine, st, key,
		protocol.WithTurnTimeout(util.ParseDurationEnv("TRIAGEPIPE_TURN_TIMEOUT", protocol.DefaultTurnTimeout)),
		protocol.WithPlaintextFallback(util.ParseBoolEnv("TRIAGEPIPE_PLAINTEXT_FALLBACK", false)),
	)

	server := api.NewServer(svc, st, *flags.apiAddr)
	slog.Info("Bootstrapping TriagePipe", "driver", *flags.dbDriver, "addr", *flags.apiAddr)
	return server.Run()
}
