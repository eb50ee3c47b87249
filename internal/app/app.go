package app

import (
	"context"
	"database/sql"
	"fmt"

	"asyncops/internal/config"
	"asyncops/internal/db"
	"asyncops/internal/domain"
	"asyncops/internal/engine"
	"asyncops/internal/migrate"
)

// Bootstrap opens the workspace database, applies pending migrations and
// loads configuration. The caller owns the returned connection.
func Bootstrap(workspace string) (*sql.DB, *config.Config, error) {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, cfg, nil
}

// EnsureAdmin seeds the first admin account when no users exist yet.
// Subsequent calls are no-ops so restarts don't touch existing accounts.
func EnsureAdmin(ctx context.Context, e engine.Engine, email, fullName, password string) error {
	count, err := e.Repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if email == "" || password == "" {
		return nil
	}
	if _, err := e.RegisterUser(ctx, engine.RegisterOptions{
		Email:    email,
		FullName: fullName,
		Password: password,
		Role:     domain.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}
