// quotactl imports monthly quota overrides from an ops spreadsheet into the
// service database. First sheet, header row, columns:
// scope (user|team|global) | scope_id | monthly_limit.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"voicecoach-go/internal/config"
	"voicecoach-go/internal/logger"
	"voicecoach-go/internal/quota"
	"voicecoach-go/internal/store"
)

func main() {
	_ = godotenv.Load()

	log := logger.Component("quotactl")

	workbook := flag.String("f", "", "Path to the quota overrides xlsx")
	dbPath := flag.String("db", "", "Override the sqlite database path")
	flag.Parse()

	if *workbook == "" {
		flag.Usage()
		log.Fatal("missing -f workbook path")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	path := cfg.DBPath
	if *dbPath != "" {
		path = *dbPath
	}

	db, err := store.Open(path)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	imported, err := quota.New(db, cfg.DefaultMonthlyLimit).ImportWorkbook(ctx, *workbook)
	if err != nil {
		log.WithError(err).Fatal("import failed")
	}
	log.WithField("imported", imported).Info("done")
}
