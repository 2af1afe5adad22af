package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/projenitor/projenitor-api/config"
	"github.com/projenitor/projenitor-api/database"
	"github.com/projenitor/projenitor-api/services"
)

func main() {
	// Load environment variables
	if err := config.LoadENV(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Initialize database connection using GORM
	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Run seeds
	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("Projenitor - Database Seeding")
	fmt.Println(separator)
	fmt.Println()

	if err := services.RunSeeds(context.Background(), store.GetDB()); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("🎉 Seeding completed successfully!")
	fmt.Println(separator)
}
