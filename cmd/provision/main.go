// Command provision applies the schema and creates the admin account. It is
// the only place schema changes and account seeding happen; the API server
// never touches either at startup.
package main

import (
	"errors"
	"os"
	"time"

	"github.com/unmablr/meetreg/internal/config"
	"github.com/unmablr/meetreg/internal/db"
	"github.com/unmablr/meetreg/internal/observability"
	"github.com/unmablr/meetreg/internal/repo/postgres"
	"github.com/unmablr/meetreg/internal/security"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	ctx, cancel := config.WithTimeout(30 * time.Second)
	defer cancel()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}
	log.Info("schema up to date")

	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		log.Info("ADMIN_USERNAME/ADMIN_PASSWORD not set, skipping admin creation")
		return
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Error("could not hash admin password", "err", err)
		os.Exit(1)
	}

	users := postgres.NewUsersRepo(pool)

	_, err = users.Create(ctx, cfg.AdminUsername, hash, "admin")
	if err != nil {
		if errors.Is(err, postgres.ErrUsernameTaken) {
			log.Info("admin account already exists", "username", cfg.AdminUsername)
			return
		}
		log.Error("could not create admin account", "err", err)
		os.Exit(1)
	}

	log.Info("admin account created", "username", cfg.AdminUsername)
}
