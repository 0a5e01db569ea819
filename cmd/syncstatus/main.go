// Command syncstatus prints the per-group scrape status report from the
// local database. The same report is mailed by the scheduled sync check;
// this binary gives operators the ad-hoc version.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/config"
	"github.com/groupleads/leadbot-admin/internal/notifications"
	"github.com/groupleads/leadbot-admin/internal/storage"
)

func main() {
	botID := flag.String("bot", "", "limit the report to one bot")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	groups, err := storage.NewGroupStore(db).All()
	if err != nil {
		log.Fatalf("Failed to read groups: %v", err)
	}

	if *botID != "" {
		filtered := groups[:0]
		for _, g := range groups {
			if g.BotID == *botID {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
		if len(groups) == 0 {
			fmt.Fprintf(os.Stderr, "No groups recorded for bot %s\n", *botID)
			os.Exit(1)
		}
	}

	fmt.Print(notifications.BuildSyncReport(groups))
}
