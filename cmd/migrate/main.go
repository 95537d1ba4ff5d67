package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/priyanshu-3/SkinCare/internal/adapters/postgres"
	"github.com/priyanshu-3/SkinCare/internal/pkg/config"
)

// migrations are applied in order by "up" and reverted in reverse by "down".
var migrations = []string{
	"001_init_extensions",
	"002_location_resolutions",
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down> [dir]")
	}
	dir := "migrations"
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	cfg, err := config.Load("skincare-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.Database.Enabled() {
		log.Fatal("database.host is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 1)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		for _, m := range migrations {
			apply(ctx, db, filepath.Join(dir, m+".sql"))
		}
		log.Println("all migrations applied")
	case "down":
		for i := len(migrations) - 1; i >= 0; i-- {
			f := filepath.Join(dir, migrations[i]+".down.sql")
			if _, err := os.Stat(f); os.IsNotExist(err) {
				fmt.Printf("SKIP %s\n", f)
				continue
			}
			apply(ctx, db, f)
		}
		log.Println("all migrations reverted")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func apply(ctx context.Context, db *postgres.DB, f string) {
	data, err := os.ReadFile(f)
	if err != nil {
		log.Fatalf("read %s: %v", f, err)
	}

	if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
		log.Fatalf("exec %s: %v", f, err)
	}

	fmt.Printf("OK  %s\n", f)
}
