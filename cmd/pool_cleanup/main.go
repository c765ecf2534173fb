package main

import (
	"log"
	"os"

	"sandboxsignup/internal/database"
)

// Purges spent and expired one-time codes from the dev pool store. Meant to
// run on a schedule next to the api binary in dev deployments.
func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	res := db.Exec(`DELETE FROM pool_verification_codes WHERE expires_at < CURRENT_TIMESTAMP OR used_at IS NOT NULL`)
	if res.Error != nil {
		log.Fatalf("cleanup pool_verification_codes failed: %v", res.Error)
	}

	log.Printf("pool cleanup completed: verification_codes=%d", res.RowsAffected)
}
