package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"Melodia/config"
	"Melodia/core/auth"
	"Melodia/db"
	"Melodia/model"
	"Melodia/repository"

	"github.com/spf13/cobra"
)

var (
	seedUsername string
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account",
	Long:  `Migrate the database and create an admin account with a bcrypt-hashed password. Existing admins are left alone.`,
	Run: func(cmd *cobra.Command, args []string) {
		if seedPassword == "" {
			log.Fatal("--password is required")
		}
		cfg := config.Load()
		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("Cannot connect to database: %v", err)
		}
		defer db.CloseGormDB()
		if err := db.Migrate(db.GormDB); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		admins := repository.NewGormAdminRepository(db.GormDB)
		admin, created, err := seedAdmin(ctx, admins, seedUsername, seedPassword, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		if created {
			fmt.Printf("Created admin %q (%s)\n", admin.Username, admin.ID)
		} else {
			fmt.Printf("Admin %q already exists\n", admin.Username)
		}
	},
}

// seedAdmin creates username unless it already exists.
func seedAdmin(ctx context.Context, admins repository.AdminRepository, username, password string, cost int) (*model.Admin, bool, error) {
	existing, err := admins.GetByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return nil, false, err
	}
	admin := &model.Admin{Username: username, PasswordHash: hash}
	if err := admins.Create(ctx, admin); err != nil {
		return nil, false, err
	}
	return admin, true, nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedUsername, "username", "u", "admin", "admin username")
	seedCmd.Flags().StringVarP(&seedPassword, "password", "p", "", "admin password")
}
