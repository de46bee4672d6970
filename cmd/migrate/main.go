package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
)

const migrationsDir = "migrations"

type migration struct {
	version int
	name    string
	path    string
}

func main() {
	mode := flag.String("mode", "up", "migration mode: up or down")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		log.Fatalf("failed to ensure schema_migrations: %v", err)
	}

	switch strings.ToLower(*mode) {
	case "up":
		if err := apply(db, "up"); err != nil {
			log.Fatalf("migration up failed: %v", err)
		}
		log.Println("migration up completed")
	case "down":
		if err := apply(db, "down"); err != nil {
			log.Fatalf("migration down failed: %v", err)
		}
		log.Println("migration down completed")
	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}

func apply(db *sql.DB, direction string) error {
	files, err := loadMigrations(direction)
	if err != nil {
		return err
	}

	for _, m := range files {
		applied, err := isApplied(db, m.version)
		if err != nil {
			return err
		}
		if direction == "up" && applied {
			continue
		}
		if direction == "down" && !applied {
			continue
		}

		log.Printf("applying %s %03d: %s", direction, m.version, m.name)
		if err := runMigration(db, m, direction); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.path, err)
		}
	}
	return nil
}

// runMigration executes the SQL file and records it atomically; a failed
// statement leaves the migration unmarked.
func runMigration(db *sql.DB, m migration, direction string) error {
	content, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return err
	}
	if direction == "up" {
		_, err = tx.Exec("INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.version, m.name)
	} else {
		_, err = tx.Exec("DELETE FROM schema_migrations WHERE version = $1", m.version)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// loadMigrations reads NNN_name.{up,down}.sql files, ordered ascending for up
// and descending for down.
func loadMigrations(direction string) ([]migration, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return nil, err
	}

	suffix := "." + direction + ".sql"
	var files []migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), suffix) {
			continue
		}

		parts := strings.SplitN(name, "_", 2)
		if len(parts) != 2 {
			log.Printf("skipping migration without version prefix: %s", name)
			continue
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			log.Printf("skipping migration without numeric version: %s", name)
			continue
		}

		files = append(files, migration{
			version: version,
			name:    strings.TrimSuffix(parts[1], suffix),
			path:    filepath.Join(migrationsDir, name),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if direction == "down" {
			return files[i].version > files[j].version
		}
		return files[i].version < files[j].version
	})
	return files, nil
}

func isApplied(db *sql.DB, version int) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version).Scan(&exists)
	return exists, err
}
