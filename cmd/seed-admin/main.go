// seed-admin bootstraps a family group with its admin, and optionally imports
// academy quiz bundles from a JSON file (an array of bundles with questions).
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/seed-admin --name Smiths --email dad@smith.test --nickname Dad --password secret
//
//	go run ./cmd/seed-admin --bundles ./academy.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/hearthbank/family_backend/config"
	"github.com/hearthbank/family_backend/models"
	"github.com/hearthbank/family_backend/utils"
)

func main() {
	name := flag.String("name", "", "group name")
	email := flag.String("email", "", "admin email, also the group login")
	nickname := flag.String("nickname", "", "admin nickname")
	password := flag.String("password", "", "admin password")
	bundlesFile := flag.String("bundles", "", "optional JSON file of quiz bundles to import")
	flag.Parse()

	if *email == "" && *bundlesFile == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass --email (with --name --nickname --password) and/or --bundles")
		os.Exit(2)
	}

	ctx := context.Background()
	db := config.ConnectDatabaseWithRetry(config.DatabaseSettingsFromEnv())
	defer config.CloseDatabase(db)

	if err := models.MigrateTable(db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	if *email != "" {
		group, admin, err := models.CreateGroup(ctx, db, &models.NewGroup{
			Name:       *name,
			AdminEmail: *email,
			Nickname:   *nickname,
			Password:   *password,
		})
		if err != nil {
			var appErr *utils.AppError
			if errors.As(err, &appErr) && appErr.Kind == utils.KindConflict {
				fmt.Printf("group for %q already exists, skipping\n", *email)
			} else {
				fmt.Fprintf(os.Stderr, "failed to create group: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Printf("Created group %q (id=%d) with admin %q (id=%d)\n", group.Name, group.ID, admin.Nickname, admin.ID)
		}
	}

	if *bundlesFile != "" {
		raw, err := os.ReadFile(*bundlesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read bundles: %v\n", err)
			os.Exit(1)
		}
		var bundles []models.NewQuizBundle
		if err := json.Unmarshal(raw, &bundles); err != nil {
			fmt.Fprintf(os.Stderr, "failed to parse bundles: %v\n", err)
			os.Exit(1)
		}
		for i := range bundles {
			bundle, err := models.CreateBundle(ctx, db, &bundles[i])
			if err != nil {
				fmt.Fprintf(os.Stderr, "bundle %d (%q): %v\n", i+1, bundles[i].Title, err)
				os.Exit(1)
			}
			fmt.Printf("Imported bundle %q (id=%d)\n", bundle.Title, bundle.ID)
		}
	}
}
