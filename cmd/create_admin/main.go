package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/carelane/authcore/application/port/outbound"
	"github.com/carelane/authcore/domain/entity"
	"github.com/carelane/authcore/domain/role"
	"github.com/carelane/authcore/infrastructure/adapter/postgres"
	"github.com/carelane/authcore/infrastructure/config"
	"github.com/carelane/authcore/infrastructure/service/password"
)

func main() {
	email := flag.String("email", "", "admin email address (required)")
	pass := flag.String("password", "", "admin password, at least 8 characters (required)")
	name := flag.String("name", "Administrator", "admin full name")
	flag.Parse()

	if *email == "" || *pass == "" {
		log.Fatal("both -email and -password are required")
	}
	if len(*pass) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	hasher := password.NewBcryptPasswordService(cfg.BcryptCost)
	hash, err := hasher.HashPassword(*pass)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	admin := &entity.User{
		ID:           uuid.NewString(),
		FullName:     *name,
		Email:        *email,
		PasswordHash: hash,
		Role:         role.Admin,
		Status:       entity.StatusActive,
	}

	users := postgres.NewUserRepositoryAdapter(db)
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, outbound.ErrUserAlreadyExists) {
			log.Fatalf("a user with email %s already exists", *email)
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	fmt.Printf("admin user created\n  id:    %s\n  email: %s\n  role:  %s\n", admin.ID, admin.Email, admin.Role)
}
