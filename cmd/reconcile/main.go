// Command reconcile recomputes every account's credit balance from the
// ledger and overwrites drifted projections. Intended to run out of band,
// e.g. from cron, as the recovery path for balances left stale by a partial
// failure between a ledger write and its balance update.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/cardforge/cardforge-backend/internal/core/services"
	"github.com/cardforge/cardforge-backend/internal/platform/config"
	"github.com/cardforge/cardforge-backend/internal/repositories/database/pgsql"
	"github.com/cardforge/cardforge-backend/pkg/database"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall sweep timeout")
	dryRun := flag.Bool("dry-run", false, "report drift without rewriting balances")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)

	creditsRepo := pgsql.NewPgxCreditsRepository(dbPool)

	if *dryRun {
		if err := reportDrift(ctx, logger, creditsRepo); err != nil {
			logger.Error("Drift report failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	creditsService := services.NewCreditsService(creditsRepo)
	result, err := creditsService.ReconcileBalances(ctx)
	if err != nil {
		logger.Error("Reconciliation sweep failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Reconciliation sweep finished",
		slog.Int("accounts_checked", result.AccountsChecked),
		slog.Int("balances_rewritten", result.BalancesRewritten))
}

// reportDrift logs accounts whose stored balance differs from the ledger sum
// without touching anything.
func reportDrift(ctx context.Context, logger *slog.Logger, repo interface {
	SumLedgerBalances(ctx context.Context) (map[string]int64, error)
	GetBalance(ctx context.Context, accountID string) (int64, error)
}) error {
	sums, err := repo.SumLedgerBalances(ctx)
	if err != nil {
		return err
	}

	drifted := 0
	for accountID, expected := range sums {
		current, err := repo.GetBalance(ctx, accountID)
		if err != nil {
			return err
		}
		if current != expected {
			drifted++
			logger.Warn("Balance drift",
				slog.String("account_id", accountID),
				slog.Int64("stored", current),
				slog.Int64("ledger_sum", expected))
		}
	}

	logger.Info("Drift report complete", slog.Int("accounts_checked", len(sums)), slog.Int("drifted", drifted))
	return nil
}
