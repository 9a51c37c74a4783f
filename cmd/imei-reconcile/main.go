package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kwtradetech/trading_backend/config"
	"github.com/kwtradetech/trading_backend/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	fix := flag.Bool("fix", false, "Rewrite diverged projections from the event log (default: report only)")
	flag.Parse()

	godotenv.Load()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	result, err := workflow.ReconcileImeiProjections(context.Background(), logger, *fix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("checked %d units, %d diverged, %d repaired\n",
		result.UnitsChecked, len(result.Divergences), result.Repaired)
	for _, d := range result.Divergences {
		fmt.Printf("  imei=%s unit=%d projected=%s expected=%s repaired=%v reason=%s\n",
			d.Imei, d.ImeiUnitId, d.ProjectedState, d.ExpectedState, d.Repaired, d.Reason)
	}
	if len(result.Divergences) > 0 && !*fix {
		os.Exit(2)
	}
}
