// run-payday settles one group's weekly payday outside the HTTP API.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/run-payday --group-id 1
//
// The report is printed as JSON. With REDIS_ADDRESS set the run takes the same
// lock as the API, so a concurrent payday for the group is refused.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/utils"
	"github.com/hearthbank/family_backend/workflow"
)

func main() {
	groupId := flag.Int("group-id", 0, "group to settle")
	flag.Parse()
	if *groupId <= 0 {
		fmt.Fprintln(os.Stderr, "--group-id is required")
		os.Exit(2)
	}

	ctx := context.Background()
	logger := config.GetLogger()
	settings := config.SettingsFromEnv()

	db := config.ConnectDatabaseWithRetry(config.DatabaseSettingsFromEnv())
	defer config.CloseDatabase(db)

	rdb, err := config.ConnectRedis(ctx, settings.RedisAddress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis unavailable, running without lock: %v\n", err)
	}
	defer rdb.Close()

	report, err := workflow.RunPayday(ctx, db, logger, rdb.LockClient(), *groupId, time.Now().UTC())
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			fmt.Fprintf(os.Stderr, "payday refused: %s\n", appErr.Message)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "payday failed: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
		os.Exit(1)
	}
}
