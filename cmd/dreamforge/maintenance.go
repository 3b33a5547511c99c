package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/smallbiznis/dreamforge/internal/artist"
	"github.com/smallbiznis/dreamforge/internal/creditpack"
	reconciliationdomain "github.com/smallbiznis/dreamforge/internal/reconciliation/domain"
	"github.com/smallbiznis/dreamforge/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errDriftDetected = errors.New("ledger drift detected")

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and seed the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			infrastructure(),
			creditpack.Module,
			artist.Module,
			seed.Module,
		)
		return runOnce(cmd.Context(), app, nil)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare cached balances with the ledger and record drift",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			reconciler reconciliationdomain.Service
			log        *zap.Logger
		)
		app := fx.New(
			infrastructure(),
			ledgerStack(),
			fx.Populate(&reconciler, &log),
		)

		return runOnce(cmd.Context(), app, func(ctx context.Context) error {
			report, err := reconciler.Scan(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}

			if len(report.Drift) > 0 {
				log.Warn("reconciliation found drift", zap.Int("accounts", len(report.Drift)))
				return errDriftDetected
			}
			log.Info("ledger consistent")
			return nil
		})
	},
}

// runOnce starts the app, runs fn while its resources are open and stops it
// again. Stop always runs so queued notifications are flushed.
func runOnce(ctx context.Context, app *fx.App, fn func(context.Context) error) error {
	if err := app.Err(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	startCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	var runErr error
	if fn != nil {
		runErr = fn(ctx)
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
