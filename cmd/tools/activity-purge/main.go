// cmd/tools/activity-purge/main.go
//
// Operator tool that removes activity log entries older than the retention
// window. Run from cron; the API never deletes audit rows itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"agency-crm/internal/activity"
	"agency-crm/internal/common/config"
	"agency-crm/internal/common/database"
	"agency-crm/internal/common/logger"
)

func main() {
	retentionDays := flag.Int("retention-days", 365, "delete entries older than this many days")
	dryRun := flag.Bool("dry-run", false, "report what would be deleted without deleting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		log.Error("postgres init failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -*retentionDays)

	if *dryRun {
		var count int64
		err := pg.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM activity_log WHERE created_at < $1`, cutoff).Scan(&count)
		if err != nil {
			log.Error("count failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		log.Info("dry run", map[string]interface{}{
			"cutoff":       cutoff.Format(time.RFC3339),
			"would_delete": count,
		})
		return
	}

	recorder := activity.NewRecorder(pg.DB, nil, log)
	deleted, err := recorder.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		log.Error("purge failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	log.Info("purge complete", map[string]interface{}{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": deleted,
	})
}
