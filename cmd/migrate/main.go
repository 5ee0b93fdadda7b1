package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/aegisaware/phishtrack/internal/config"
)

// Applies every .sql file under migrations/ in lexical order, once each,
// tracked in schema_migrations. Plain forward-only migrations; rollbacks are
// new migrations.
func main() {
	configPath := "config.yaml"
	dir := "migrations"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("[Migrate] Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("[Migrate] Database open failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		log.Fatalf("[Migrate] Failed to ensure schema_migrations: %v", err)
	}

	files, err := listMigrations(dir)
	if err != nil {
		log.Fatalf("[Migrate] %v", err)
	}

	applied := 0
	for _, f := range files {
		done, err := alreadyApplied(db, f)
		if err != nil {
			log.Fatalf("[Migrate] %v", err)
		}
		if done {
			continue
		}
		if err := apply(db, dir, f); err != nil {
			log.Fatalf("[Migrate] %s failed: %v", f, err)
		}
		log.Printf("[Migrate] Applied %s", f)
		applied++
	}

	log.Printf("[Migrate] Done: %d applied, %d total", applied, len(files))
}

func listMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func alreadyApplied(db *sql.DB, filename string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE filename = $1`, filename).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", filename, err)
	}
	return n > 0, nil
}

func apply(db *sql.DB, dir, filename string) error {
	sqlBytes, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(string(sqlBytes)); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
