// seed-demo populates a development database with a creditor profile, a few
// mandates and open charges so the batch flow can be exercised end to end.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-demo -tenant dojo-demo
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"bitbucket.org/dojoworks/dojo_backend/models"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"github.com/shopspring/decimal"
)

func main() {
	tenant := flag.String("tenant", "dojo-demo", "tenant id to seed")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := utils.SetTenantIdInContext(context.Background(), *tenant)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")

	if _, err := models.UpsertCreditorProfile(ctx, models.NewCreditorProfile{
		TenantId:     *tenant,
		CreditorName: "Demo Budo Club e.V.",
		CreditorIban: "DE89370400440532013000",
		CreditorBic:  "COBADEFFXXX",
		CreditorId:   "DE98ZZZ09999999999",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed creditor profile: %v\n", err)
		os.Exit(1)
	}

	signature := time.Now().UTC().AddDate(0, -2, 0)
	seedMembers := []models.NewMandate{
		{TenantId: *tenant, AccountHolderName: "Anna Müller", Iban: "DE02120300000000202051", Bic: "BYLADEM1001", SignatureDate: signature, RecurringAmount: decimal.NewFromFloat(49.00)},
		{TenantId: *tenant, AccountHolderName: "Jörg Weißmann", Iban: "DE02500105170137075030", SignatureDate: signature, RecurringAmount: decimal.NewFromFloat(89.00)},
		{TenantId: *tenant, AccountHolderName: "Claire Dubois", Iban: "FR1420041010050500013M02606", SignatureDate: signature, RecurringAmount: decimal.NewFromFloat(59.00)},
	}

	due := time.Now().UTC().AddDate(0, 0, 3)
	for _, m := range seedMembers {
		mandate, err := models.CreateMandate(ctx, m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed mandate for %s: %v\n", m.AccountHolderName, err)
			os.Exit(1)
		}
		_, err = models.CreateChargeEntry(ctx, models.NewChargeEntry{
			TenantId:    *tenant,
			MandateId:   mandate.ID,
			Amount:      m.RecurringAmount,
			PurposeText: "Monatsbeitrag " + due.Format("2006-01"),
			DueDate:     due,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to seed charge for %s: %v\n", m.AccountHolderName, err)
			os.Exit(1)
		}
		fmt.Printf("Seeded mandate %s for %s\n", mandate.MandateReference, mandate.AccountHolderName)
	}
	fmt.Printf("Tenant %q seeded: creditor profile, %d mandates, %d open charges\n", *tenant, len(seedMembers), len(seedMembers))
}
