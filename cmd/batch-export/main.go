// batch-export renders a persisted batch's pain.008.001.02 XML to a local
// file. Ops escape hatch for when the dashboard is unreachable: it reads the
// cached export when present and re-renders otherwise, but never advances the
// batch lifecycle.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/batch-export -batch-id 42 -out DD-20260301-000001.xml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"bitbucket.org/dojoworks/dojo_backend/iso20022"
	"bitbucket.org/dojoworks/dojo_backend/models"
	"bitbucket.org/dojoworks/dojo_backend/utils"
)

func main() {
	batchId := flag.Int("batch-id", 0, "id of the batch to export (required)")
	out := flag.String("out", "", "output file path (default <batch_reference>.xml)")
	flag.Parse()

	if *batchId <= 0 {
		fmt.Fprintln(os.Stderr, "-batch-id is required")
		flag.Usage()
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	// Cross-tenant read tool: batch id is globally unique, tenant comes from the row.
	ctx := utils.SetSkipTenantScopeInContext(context.Background(), true)
	ctx = utils.SetUserNameInContext(ctx, "batch-export")

	batch, err := models.GetBatchWithTransactions(ctx, *batchId)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load batch %d: %v\n", *batchId, err)
		os.Exit(1)
	}

	var xmlBytes []byte
	if batch.ExportedXml != nil && !config.DisableXmlCache() {
		xmlBytes = []byte(*batch.ExportedXml)
	} else {
		creditor, err := models.GetCreditorProfile(db, ctx, batch.TenantId)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load creditor profile for tenant %s: %v\n", batch.TenantId, err)
			os.Exit(1)
		}
		xmlBytes, err = iso20022.RenderPain008(batch, creditor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to render batch %s: %v\n", batch.BatchReference, err)
			os.Exit(1)
		}
	}

	path := *out
	if path == "" {
		path = batch.BatchReference + ".xml"
	}
	if err := os.WriteFile(path, xmlBytes, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("Exported batch %s (%d transactions, EUR %s) to %s\n",
		batch.BatchReference, batch.TransactionCount, batch.TotalAmount.StringFixed(2), path)
}
