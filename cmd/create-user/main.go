package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"esurat/backend/internal/auth"
	"esurat/backend/internal/config"
	"esurat/backend/internal/domain"
	sqlstore "esurat/backend/internal/storage/sql"
)

func main() {
	if len(os.Args) < 5 {
		fmt.Println("Usage: create-user <username> <password> <name> <phone> [staff|kepsta|admin]")
		os.Exit(1)
	}

	username := os.Args[1]
	password := os.Args[2]
	name := os.Args[3]
	phone := os.Args[4]
	role := domain.RoleStaff
	if len(os.Args) >= 6 {
		switch os.Args[5] {
		case "kepsta":
			role = domain.RoleKepsta
		case "admin":
			role = domain.RoleAdmin
		case "staff":
			role = domain.RoleStaff
		default:
			fmt.Printf("Unknown role: %s\n", os.Args[5])
			os.Exit(1)
		}
	}

	// 加载配置（需要数据库连接信息）
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		fmt.Println("Database is not configured. Set ESURAT_DATABASE_TYPE and ESURAT_DATABASE_DSN.")
		os.Exit(1)
	}

	store, err := sqlstore.NewStore(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		fmt.Printf("Failed to connect database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		fmt.Printf("Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Username:     username,
		PasswordHash: hashedPassword,
		Phone:        phone,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := store.SaveUser(user); err != nil {
		fmt.Printf("Failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ User created successfully!\n")
	fmt.Printf("  ID:       %s\n", user.ID)
	fmt.Printf("  Username: %s\n", user.Username)
	fmt.Printf("  Name:     %s\n", user.Name)
	fmt.Printf("  Role:     %s\n", user.Role)
}
