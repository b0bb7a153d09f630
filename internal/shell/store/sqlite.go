package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jsodeh/sabi/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Row Mapping
// =============================================================================

// workflowRow represents a workflow row in the database. The project config
// and step list are serialized as JSON columns.
type workflowRow struct {
	ID                string  `db:"id"`
	ProjectID         string  `db:"project_id"`
	Project           string  `db:"project"`
	Platform          string  `db:"platform"`
	Status            string  `db:"status"`
	PlatformProjectID string  `db:"platform_project_id"`
	DeploymentURL     string  `db:"deployment_url"`
	PreviewURL        string  `db:"preview_url"`
	Steps             string  `db:"steps"`
	Logs              *string `db:"logs"`
	ErrorMessage      string  `db:"error_message"`
	CreatedAt         string  `db:"created_at"`
	StartedAt         *string `db:"started_at"`
	EndedAt           *string `db:"ended_at"`
	DurationSeconds   int64   `db:"duration_seconds"`
}

func toRow(wf *domain.DeploymentWorkflow) (*workflowRow, error) {
	projectJSON, err := json.Marshal(wf.Project)
	if err != nil {
		return nil, fmt.Errorf("serialize project: %w", err)
	}
	stepsJSON, err := json.Marshal(wf.Steps)
	if err != nil {
		return nil, fmt.Errorf("serialize steps: %w", err)
	}

	row := &workflowRow{
		ID:                wf.ID,
		ProjectID:         wf.ProjectID,
		Project:           string(projectJSON),
		Platform:          wf.Platform,
		Status:            string(wf.Status),
		PlatformProjectID: wf.PlatformProjectID,
		DeploymentURL:     wf.DeploymentURL,
		PreviewURL:        wf.PreviewURL,
		Steps:             string(stepsJSON),
		ErrorMessage:      wf.Error,
		CreatedAt:         wf.CreatedAt.UTC().Format(time.RFC3339),
		DurationSeconds:   wf.DurationSeconds,
	}
	if wf.Logs != nil {
		logsJSON, err := json.Marshal(wf.Logs)
		if err != nil {
			return nil, fmt.Errorf("serialize logs: %w", err)
		}
		s := string(logsJSON)
		row.Logs = &s
	}
	if wf.StartedAt != nil {
		s := wf.StartedAt.UTC().Format(time.RFC3339)
		row.StartedAt = &s
	}
	if wf.EndedAt != nil {
		s := wf.EndedAt.UTC().Format(time.RFC3339)
		row.EndedAt = &s
	}
	return row, nil
}

func fromRow(row *workflowRow) (*domain.DeploymentWorkflow, error) {
	wf := &domain.DeploymentWorkflow{
		ID:                row.ID,
		ProjectID:         row.ProjectID,
		Platform:          row.Platform,
		Status:            domain.Status(row.Status),
		PlatformProjectID: row.PlatformProjectID,
		DeploymentURL:     row.DeploymentURL,
		PreviewURL:        row.PreviewURL,
		Error:             row.ErrorMessage,
		DurationSeconds:   row.DurationSeconds,
	}
	if err := json.Unmarshal([]byte(row.Project), &wf.Project); err != nil {
		return nil, fmt.Errorf("deserialize project: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Steps), &wf.Steps); err != nil {
		return nil, fmt.Errorf("deserialize steps: %w", err)
	}
	if row.Logs != nil {
		if err := json.Unmarshal([]byte(*row.Logs), &wf.Logs); err != nil {
			return nil, fmt.Errorf("deserialize logs: %w", err)
		}
	}

	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	wf.CreatedAt = createdAt
	if row.StartedAt != nil {
		t, err := time.Parse(time.RFC3339, *row.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		wf.StartedAt = &t
	}
	if row.EndedAt != nil {
		t, err := time.Parse(time.RFC3339, *row.EndedAt)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		wf.EndedAt = &t
	}
	return wf, nil
}

// =============================================================================
// Workflow Operations
// =============================================================================

func (s *SQLiteStore) SaveWorkflow(ctx context.Context, wf *domain.DeploymentWorkflow) error {
	row, err := toRow(wf)
	if err != nil {
		return NewStoreError("SaveWorkflow", wf.ID, err.Error(), ErrInvalidData)
	}

	query := `
		INSERT INTO workflows (
			id, project_id, project, platform, status,
			platform_project_id, deployment_url, preview_url,
			steps, logs, error_message,
			created_at, started_at, ended_at, duration_seconds
		) VALUES (
			:id, :project_id, :project, :platform, :status,
			:platform_project_id, :deployment_url, :preview_url,
			:steps, :logs, :error_message,
			:created_at, :started_at, :ended_at, :duration_seconds
		)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			platform_project_id = excluded.platform_project_id,
			deployment_url = excluded.deployment_url,
			preview_url = excluded.preview_url,
			steps = excluded.steps,
			logs = excluded.logs,
			error_message = excluded.error_message,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			duration_seconds = excluded.duration_seconds`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return NewStoreError("SaveWorkflow", wf.ID, err.Error(), err)
	}
	return nil
}

func (s *SQLiteStore) GetWorkflow(ctx context.Context, id string) (*domain.DeploymentWorkflow, error) {
	var row workflowRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM workflows WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("GetWorkflow", id, "not found", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("GetWorkflow", id, err.Error(), err)
	}

	wf, err := fromRow(&row)
	if err != nil {
		return nil, NewStoreError("GetWorkflow", id, err.Error(), ErrInvalidData)
	}
	return wf, nil
}

func (s *SQLiteStore) ListWorkflows(ctx context.Context, opts ListOptions) ([]domain.DeploymentWorkflow, error) {
	opts = opts.Normalize()
	var rows []workflowRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM workflows ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListWorkflows", "", err.Error(), err)
	}
	return rowsToWorkflows("ListWorkflows", rows)
}

func (s *SQLiteStore) ListWorkflowsByProject(ctx context.Context, projectID string, opts ListOptions) ([]domain.DeploymentWorkflow, error) {
	opts = opts.Normalize()
	var rows []workflowRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM workflows WHERE project_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		projectID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListWorkflowsByProject", "", err.Error(), err)
	}
	return rowsToWorkflows("ListWorkflowsByProject", rows)
}

func (s *SQLiteStore) DeleteWorkflow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return NewStoreError("DeleteWorkflow", id, err.Error(), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return NewStoreError("DeleteWorkflow", id, err.Error(), err)
	}
	if affected == 0 {
		return NewStoreError("DeleteWorkflow", id, "not found", ErrNotFound)
	}
	return nil
}

func rowsToWorkflows(op string, rows []workflowRow) ([]domain.DeploymentWorkflow, error) {
	out := make([]domain.DeploymentWorkflow, 0, len(rows))
	for i := range rows {
		wf, err := fromRow(&rows[i])
		if err != nil {
			return nil, NewStoreError(op, rows[i].ID, err.Error(), ErrInvalidData)
		}
		out = append(out, *wf)
	}
	return out, nil
}
