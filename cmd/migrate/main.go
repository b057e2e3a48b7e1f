package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
)

// migrate applies every scripts/migrations/*.sql file, in lexical order,
// that has not been recorded in schema_migrations yet.
func main() {
	dbPath := flag.String("db", "./reefops.db", "Path to the database file")
	migrationsDir := flag.String("migrations", "scripts/migrations", "Directory holding *.sql migration files")
	flag.Parse()

	db, err := sql.Open("sqlite3", *dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		log.Fatalf("Failed to create migrations table: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(*migrationsDir, "*.sql"))
	if err != nil {
		log.Fatalf("Failed to list migrations: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("No migration files found in %s", *migrationsDir)
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		name := filepath.Base(file)

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE name = ?", name).Scan(&count); err != nil {
			log.Fatalf("Failed to check migration %s: %v", name, err)
		}
		if count > 0 {
			continue
		}

		content, err := os.ReadFile(file) // #nosec G304 - operator-supplied path
		if err != nil {
			log.Fatalf("Failed to read %s: %v", name, err)
		}

		fmt.Printf("Applying %s...\n", name)
		tx, err := db.Begin()
		if err != nil {
			log.Fatalf("Failed to begin transaction for %s: %v", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			log.Fatalf("Migration %s failed: %v", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (name) VALUES (?)", name); err != nil {
			_ = tx.Rollback()
			log.Fatalf("Failed to record %s: %v", name, err)
		}
		if err := tx.Commit(); err != nil {
			log.Fatalf("Failed to commit %s: %v", name, err)
		}
		applied++
	}

	fmt.Printf("Done, %d migration(s) applied.\n", applied)
}
