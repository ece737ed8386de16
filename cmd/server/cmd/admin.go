package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/trading-network/internal/config"
	"github.com/iliyamo/trading-network/internal/fixtures"
	"github.com/iliyamo/trading-network/internal/middleware"
)

var (
	adminUsername string
	adminEmail    string
	adminPassword string
	newPassword   string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "create-superuser",
	Short: "Create an active staff account with full privileges",
	Long: `Create an active, verified superuser.  Flags fall back to the
ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		username := firstNonEmpty(adminUsername, os.Getenv("ADMIN_USERNAME"))
		email := firstNonEmpty(adminEmail, os.Getenv("ADMIN_EMAIL"))
		password := firstNonEmpty(adminPassword, os.Getenv("ADMIN_PASSWORD"))
		if username == "" || email == "" || password == "" {
			return fmt.Errorf("username, email and password are required")
		}

		a, err := newApp(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		u, err := a.accounts.CreateSuperuser(ctx, username, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "superuser %s created (id %d)\n", u.Email, u.ID)
		return nil
	},
}

var setPasswordCmd = &cobra.Command{
	Use:   "set-password EMAIL",
	Short: "Replace the password of an existing account",
	Long: `Replace the password of the account registered under EMAIL and
revoke its refresh tokens.  The --password flag falls back to ADMIN_PASSWORD.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		password := firstNonEmpty(newPassword, os.Getenv("ADMIN_PASSWORD"))
		if password == "" {
			return fmt.Errorf("password is required")
		}

		a, err := newApp(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		u, err := a.accounts.SetPassword(ctx, args[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", u.Email)
		return nil
	},
}

var clearDebtCmd = &cobra.Command{
	Use:   "clear-debt ID [ID...]",
	Short: "Set the debt of the given network nodes to zero",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		n, err := a.directory.ClearDebt(ctx, ids)
		if err != nil {
			return err
		}
		purgeCache(ctx, config.LoadCacheConfig(), config.LoadRedisConfig(), logger)
		fmt.Fprintf(cmd.OutOrStdout(), "debt cleared for %d node(s)\n", n)
		return nil
	},
}

var loadFixturesCmd = &cobra.Command{
	Use:   "load-fixtures FILE",
	Short: "Load products and network nodes from a JSON fixture file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		l := &fixtures.Loader{Products: a.catalog, Nodes: a.directory, Debts: a.nodeRepo, Logger: logger}
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		res, err := l.Load(ctx, f)
		purgeCache(ctx, config.LoadCacheConfig(), config.LoadRedisConfig(), logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d product(s) and %d node(s)\n", res.Products, res.Nodes)
		return nil
	},
}

func init() {
	createSuperuserCmd.Flags().StringVar(&adminUsername, "username", "", "username (default: ADMIN_USERNAME)")
	createSuperuserCmd.Flags().StringVar(&adminEmail, "email", "", "email (default: ADMIN_EMAIL)")
	createSuperuserCmd.Flags().StringVar(&adminPassword, "password", "", "password (default: ADMIN_PASSWORD)")
	setPasswordCmd.Flags().StringVar(&newPassword, "password", "", "new password (default: ADMIN_PASSWORD)")
}

// purgeCache drops cached API responses after a command changed data
// behind the server's back.  A missing Redis only costs a warning.
func purgeCache(ctx context.Context, cc config.CacheConfig, rc config.RedisConfig, logger zerolog.Logger) {
	if !cc.Enabled {
		return
	}
	rdb := config.NewRedisClient(rc, logger)
	if rdb == nil {
		return
	}
	defer rdb.Close()
	n, err := middleware.Purge(ctx, rdb, cc.Prefix)
	if err != nil {
		logger.Warn().Err(err).Msg("cache purge failed")
		return
	}
	logger.Info().Int("keys", n).Msg("cache purged")
}

func parseIDs(args []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(args))
	for _, s := range args {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid node id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
