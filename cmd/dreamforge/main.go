package main

import (
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dreamforge/internal/account"
	"github.com/smallbiznis/dreamforge/internal/artist"
	"github.com/smallbiznis/dreamforge/internal/audit"
	"github.com/smallbiznis/dreamforge/internal/auth"
	"github.com/smallbiznis/dreamforge/internal/authorization"
	"github.com/smallbiznis/dreamforge/internal/clock"
	"github.com/smallbiznis/dreamforge/internal/config"
	"github.com/smallbiznis/dreamforge/internal/creditpack"
	"github.com/smallbiznis/dreamforge/internal/generation"
	"github.com/smallbiznis/dreamforge/internal/idempotency"
	"github.com/smallbiznis/dreamforge/internal/ledger"
	"github.com/smallbiznis/dreamforge/internal/migration"
	"github.com/smallbiznis/dreamforge/internal/notify"
	"github.com/smallbiznis/dreamforge/internal/objectstore"
	"github.com/smallbiznis/dreamforge/internal/observability"
	"github.com/smallbiznis/dreamforge/internal/payment"
	"github.com/smallbiznis/dreamforge/internal/providers"
	"github.com/smallbiznis/dreamforge/internal/ratelimit"
	"github.com/smallbiznis/dreamforge/internal/reconciliation"
	"github.com/smallbiznis/dreamforge/internal/scheduler"
	"github.com/smallbiznis/dreamforge/internal/seed"
	"github.com/smallbiznis/dreamforge/internal/server"
	"github.com/smallbiznis/dreamforge/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var rootCmd = &cobra.Command{
	Use:           "dreamforge",
	Short:         "Credit-metered dream art generation backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// infrastructure is shared by every sub-command. The schema is brought up to
// date before anything else touches the database.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
	)
}

// ledgerStack wires the credit ledger and its reconciliation alerts.
func ledgerStack() fx.Option {
	return fx.Options(
		providers.Module,
		notify.Module,
		account.Module,
		ledger.Module,
		reconciliation.Module,
	)
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.SnowflakeNode, err)
	}
	return node, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			infrastructure(),
			ledgerStack(),

			idempotency.Module,
			creditpack.Module,
			artist.Module,
			seed.Module,
			objectstore.Module,
			generation.Module,
			payment.Module,
			auth.Module,
			authorization.Module,
			audit.Module,
			ratelimit.Module,
			scheduler.Module,

			server.Module,
		)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}
