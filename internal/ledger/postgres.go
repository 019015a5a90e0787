package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/remedyops/remedy/internal/models"
)

// PostgresArchive persists action transitions to PostgreSQL. It is an
// archive only: reads go through the in-memory ledger.
type PostgresArchive struct {
	db     *sql.DB
	logger *slog.Logger
}

// PostgresConfig holds connection configuration for the archive.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPostgresConfig returns a PostgresConfig with sensible defaults.
func DefaultPostgresConfig(dsn string) *PostgresConfig {
	return &PostgresConfig{
		DSN:             dsn,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// NewPostgresArchive opens the archive database and ensures its schema.
func NewPostgresArchive(cfg *PostgresConfig, logger *slog.Logger) (*PostgresArchive, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	a := &PostgresArchive{db: db, logger: logger}
	if err := a.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return a, nil
}

func (a *PostgresArchive) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS automated_actions (
			id            TEXT PRIMARY KEY,
			deployment_id TEXT NOT NULL,
			type          TEXT NOT NULL,
			status        TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			result        TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL,
			completed_at  TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_automated_actions_deployment
			ON automated_actions (deployment_id, created_at)`

	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// Record upserts the action's latest state.
func (a *PostgresArchive) Record(ctx context.Context, action models.AutomatedAction) error {
	query := `
		INSERT INTO automated_actions (id, deployment_id, type, status, description, result, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			completed_at = EXCLUDED.completed_at`

	var completedAt sql.NullTime
	if action.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *action.CompletedAt, Valid: true}
	}

	_, err := a.db.ExecContext(ctx, query,
		action.ID,
		action.DeploymentID,
		string(action.Type),
		string(action.Status),
		action.Description,
		action.Result,
		action.CreatedAt,
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting action: %w", err)
	}
	return nil
}

// ListByDeployment retrieves archived actions for a deployment, oldest first.
func (a *PostgresArchive) ListByDeployment(ctx context.Context, deploymentID string) ([]models.AutomatedAction, error) {
	query := `
		SELECT id, deployment_id, type, status, description, result, created_at, completed_at
		FROM automated_actions
		WHERE deployment_id = $1
		ORDER BY created_at ASC`

	rows, err := a.db.QueryContext(ctx, query, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("querying actions: %w", err)
	}
	defer rows.Close()

	var actions []models.AutomatedAction
	for rows.Next() {
		var action models.AutomatedAction
		var completedAt sql.NullTime
		if err := rows.Scan(
			&action.ID,
			&action.DeploymentID,
			&action.Type,
			&action.Status,
			&action.Description,
			&action.Result,
			&action.CreatedAt,
			&completedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			action.CompletedAt = &t
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

// Close closes the archive database.
func (a *PostgresArchive) Close() error {
	return a.db.Close()
}
