package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gambey/amz-saas-svr/internal/auth"
	"github.com/gambey/amz-saas-svr/internal/config"
	sqlstore "github.com/gambey/amz-saas-svr/internal/storage/sql"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: create-admin <username> <password> [super]")
		os.Exit(1)
	}

	username := os.Args[1]
	password := os.Args[2]
	isSuper := len(os.Args) >= 4 && os.Args[3] == "super"

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		fmt.Println("Database is not configured, set AMZSAAS_DATABASE_TYPE and AMZSAAS_DATABASE_DSN")
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

	if err := store.Migrate(); err != nil {
		fmt.Printf("Failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	authService := auth.NewService(store)
	admin, err := authService.CreateAdmin(auth.CreateAdminInput{
		Username:     username,
		Password:     password,
		IsSuperAdmin: isSuper,
	})
	action := "created"
	if errors.Is(err, auth.ErrAdminExists) {
		admin, err = authService.ResetPassword(username, password)
		if err != nil {
			fmt.Printf("Failed to reset password for %q: %v\n", username, err)
			os.Exit(1)
		}
		action = "password updated"
	} else if err != nil {
		fmt.Printf("Failed to create admin: %v\n", err)
		os.Exit(1)
	}

	role := "admin"
	if admin.IsSuperAdmin {
		role = "super admin"
	}
	fmt.Printf("Admin %s!\n", action)
	fmt.Printf("  ID:       %s\n", admin.ID)
	fmt.Printf("  Username: %s\n", admin.Username)
	fmt.Printf("  Role:     %s\n", role)
}
