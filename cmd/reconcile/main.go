// Command reconcile recomputes every principal's quota ledger from the
// file rows and clears stale reservations. Run it periodically or after
// an incident that may have left the ledger drifting.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/avolkonsky/cloudvault/internal/logging"
	"github.com/avolkonsky/cloudvault/internal/server/config"
	"github.com/avolkonsky/cloudvault/internal/server/repositories/repomanager"
	"github.com/avolkonsky/cloudvault/internal/server/services"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	svc := services.NewQuotaService(db, rm, logger)

	results, err := svc.ReconcileAll(ctx)
	if err != nil {
		log.Fatalf("reconcile error: %v", err)
	}

	var drifted int
	for _, r := range results {
		if r.OldUsed == r.NewUsed {
			continue
		}
		drifted++
		fmt.Printf("%s: used %d -> %d\n", r.OwnerID, r.OldUsed, r.NewUsed)
	}
	fmt.Printf("reconciled %d owners, %d corrected\n", len(results), drifted)
}
