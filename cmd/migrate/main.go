package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"photobooth/internal/logger"
	"photobooth/internal/repository/sqlite"
	"photobooth/internal/service/storage"
	"sort"
)

// Indexes strips already sitting in the export directory, for example
// after restoring a backup without the database.
func main() {
	exportDir := flag.String("exports", "exports", "Directory containing exported strips")
	dbPath := flag.String("db", "data/strips.db", "Database path")
	flag.Parse()

	fmt.Printf("Indexing strips from %s into database %s\n", *exportDir, *dbPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	repo := sqlite.NewStripRepository(db)

	store := storage.NewStripStore(*exportDir, repo, logger.Discard())
	result, err := store.Reindex()
	if err != nil {
		log.Fatalf("Failed to index strips: %v", err)
	}

	fmt.Printf("✅ Indexed %d new strips (%d already present)\n", result.Inserted, result.Existing)
	if len(result.Skipped) > 0 {
		fmt.Printf("⚠️  Skipped %d files (invalid format or errors)\n", len(result.Skipped))
		names := make([]string, 0, len(result.Skipped))
		for name := range result.Skipped {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("      - %s: %v\n", name, result.Skipped[name])
		}
	}

	stats, err := repo.GetStats()
	if err == nil {
		fmt.Printf("\n📊 Database Statistics:\n")
		fmt.Printf("   Total strips: %d\n", stats.TotalStrips)
		fmt.Printf("   Total size: %d bytes\n", stats.TotalSizeBytes)
		fmt.Printf("   Per layout:\n")
		for id, count := range stats.PerLayout {
			fmt.Printf("      - %s: %d strips\n", id, count)
		}
	}
}
