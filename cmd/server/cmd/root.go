package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/trading-network/internal/config"
	"github.com/iliyamo/trading-network/internal/database"
	"github.com/iliyamo/trading-network/internal/repository"
	"github.com/iliyamo/trading-network/internal/service"
)

var (
	// Global flags
	envFile   string
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "server",
		Short: "Trading network backend",
		Long: `Trading network backend: the factory, retail chain and reseller hierarchy,
its product catalog and the user accounts that operate on it.

Without a subcommand the HTTP server is started.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}
)

// Execute runs the root command.  It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to seed the environment from (missing files are ignored)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createSuperuserCmd)
	rootCmd.AddCommand(setPasswordCmd)
	rootCmd.AddCommand(clearDebtCmd)
	rootCmd.AddCommand(loadFixturesCmd)
}

// setup loads configuration and builds the logger, honoring the global
// flags over the environment.
func setup() (config.Config, zerolog.Logger, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("load env file: %w", err)
	}
	cfg := config.Load()
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, config.NewLogger(cfg.Logging), nil
}

func dsn(cfg config.Config) string {
	return database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// app holds the repositories and services shared by the commands.
type app struct {
	db        *sql.DB
	nodeRepo  *repository.NodeRepo
	directory *service.Directory
	catalog   *service.Catalog
	accounts  *service.Accounts
}

// newApp opens the database and wires the services.  notifier is nil for
// commands that never register users.
func newApp(cfg config.Config, logger zerolog.Logger, notifier service.RegistrationNotifier) (*app, error) {
	db, err := database.Open(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	nodes := repository.NewNodeRepo(db)
	products := repository.NewProductRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	return &app{
		db:        db,
		nodeRepo:  nodes,
		directory: service.NewDirectory(nodes, products, logger, cfg.PageSize),
		catalog:   service.NewCatalog(products, logger, cfg.PageSize),
		accounts: service.NewAccounts(users, tokens, nodes, notifier, service.AccountsConfig{
			JWTSecret:      cfg.JWTSecret,
			AccessTTLMin:   cfg.AccessTTLMin,
			RefreshTTLDays: cfg.RefreshTTLDays,
			BcryptCost:     cfg.BcryptCost,
			BaseURL:        cfg.BaseURL,
			PageSize:       cfg.PageSize,
		}, logger),
	}, nil
}

func (a *app) Close() error { return a.db.Close() }
