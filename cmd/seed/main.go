// seed inserts a development user for local testing.
// Idempotent: skips the insert if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/config"
	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/db"
	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/security"
	"github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/user/domain"
	userrepo "github.com/ThriledLokki983/vineyardgroupfellowship-be-sub000/internal/user/repository"
)

const (
	devUserEmail = "dev@example.com"
	devPassword  = "password123"
	devUserID    = "dev-user-001"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	if err := users.Create(ctx, &domain.User{
		ID:           devUserID,
		Email:        devUserEmail,
		PasswordHash: passwordHash,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		log.Fatalf("create dev user: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev login: %s / %s\n", devUserEmail, devPassword)
}
