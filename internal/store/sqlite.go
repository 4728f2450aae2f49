package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS artifacts (
	case_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	data       BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (case_id, name)
);

CREATE TABLE IF NOT EXISTS evaluations (
	id         TEXT PRIMARY KEY,
	case_id    TEXT NOT NULL,
	status     TEXT NOT NULL,
	score      REAL NOT NULL DEFAULT 0,
	record     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_evaluations_case_id ON evaluations(case_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_status ON evaluations(status);
CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) PutArtifact(ctx context.Context, caseID, name string, data []byte) error {
	if err := validateKey(caseID, name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (case_id, name, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (case_id, name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		caseID, name, data, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put artifact %s/%s", caseID, name)
}

func (s *SQLiteStore) GetArtifact(ctx context.Context, caseID, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM artifacts WHERE case_id = ? AND name = ?`,
		caseID, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "artifact %s/%s", caseID, name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get artifact %s/%s", caseID, name)
	}
	return data, nil
}

func (s *SQLiteStore) ListArtifacts(ctx context.Context, caseID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM artifacts WHERE case_id = ? ORDER BY name`,
		caseID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list artifacts")
	}
	defer rows.Close() //nolint:errcheck

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan artifact name")
		}
		names = append(names, n)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: list artifacts iterate")
}

func (s *SQLiteStore) SaveEvaluation(ctx context.Context, ev *model.Evaluation) error {
	if err := validateEvaluation(ev); err != nil {
		return err
	}
	record, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evaluation")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, case_id, status, score, record, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.CaseID, string(ev.Decision.Status), ev.Decision.Score, string(record), ev.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert evaluation %s", ev.ID)
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]model.Evaluation, error) {
	query := `SELECT record FROM evaluations WHERE 1=1`
	var args []any

	if filter.CaseID != "" {
		query += ` AND case_id = ?`
		args = append(args, filter.CaseID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list evaluations iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scannable) (*model.Evaluation, error) {
	var record string
	if err := row.Scan(&record); err != nil {
		return nil, eris.Wrap(err, "store: scan evaluation")
	}
	var ev model.Evaluation
	if err := json.Unmarshal([]byte(record), &ev); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal evaluation")
	}
	return &ev, nil
}
