// ledger-audit compares every cached user balance with the sum of that user's ledger.
//
// Usage:
//
//	go run ./cmd/ledger-audit [--group-id N]
//
// Exit status is 2 when any balance disagrees with its ledger.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/workflow"
)

func main() {
	groupId := flag.Int("group-id", 0, "limit the audit to one group (0 audits every group)")
	flag.Parse()

	db := config.ConnectDatabaseWithRetry(config.DatabaseSettingsFromEnv())
	defer config.CloseDatabase(db)

	mismatches, err := workflow.AuditBalances(db, *groupId)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit failed: %v\n", err)
		os.Exit(1)
	}
	if len(mismatches) == 0 {
		fmt.Println("all balances match their ledgers")
		return
	}
	for _, m := range mismatches {
		fmt.Printf("user=%d nickname=%q stored=%s ledger=%s diff=%s\n",
			m.UserId, m.Nickname, m.Stored.StringFixed(2), m.Ledger.StringFixed(2), m.Stored.Sub(m.Ledger).StringFixed(2))
	}
	// deferred close does not run after os.Exit
	_ = config.CloseDatabase(db)
	os.Exit(2)
}
