package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/playarena/backend/internal/config"
	"github.com/playarena/backend/internal/database"
	"github.com/playarena/backend/internal/operator"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	phone := os.Getenv("OPERATOR_PHONE")
	if phone == "" {
		phone = "256700000000" // Default phone
		log.Printf("Using default operator phone: %s", phone)
	}

	token := os.Getenv("OPERATOR_TOKEN")
	if token == "" {
		token = "change-me-in-production" // Default token
		log.Printf("WARNING: Using default operator token. Set OPERATOR_TOKEN env var in production!")
	}

	displayName := "Operator"
	roles := []string{"operator"}

	if err := operator.CreateAccount(db, phone, displayName, token, roles); err != nil {
		log.Fatalf("Failed to create operator account: %v", err)
	}

	log.Printf("✓ Operator account created/updated successfully")
	log.Printf("  Phone: %s", phone)
	log.Printf("  Display Name: %s", displayName)
	log.Printf("  Roles: %v", roles)
}
