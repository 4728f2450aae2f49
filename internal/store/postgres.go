package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"put_artifact":    sqlPutArtifact,
	"get_artifact":    sqlGetArtifact,
	"list_artifacts":  sqlListArtifacts,
	"save_evaluation": sqlSaveEvaluation,
}

const (
	sqlPutArtifact = `INSERT INTO artifacts (case_id, name, data, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (case_id, name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	sqlGetArtifact    = `SELECT data FROM artifacts WHERE case_id = $1 AND name = $2`
	sqlListArtifacts  = `SELECT name FROM artifacts WHERE case_id = $1 ORDER BY name`
	sqlSaveEvaluation = `INSERT INTO evaluations (id, case_id, status, score, record, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS artifacts (
	case_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (case_id, name)
);

CREATE TABLE IF NOT EXISTS evaluations (
	id         TEXT PRIMARY KEY,
	case_id    TEXT NOT NULL,
	status     TEXT NOT NULL,
	score      DOUBLE PRECISION NOT NULL DEFAULT 0,
	record     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_evaluations_case_id ON evaluations(case_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_status ON evaluations(status);
CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) PutArtifact(ctx context.Context, caseID, name string, data []byte) error {
	if err := validateKey(caseID, name); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, sqlPutArtifact, caseID, name, data, time.Now().UTC())
	return eris.Wrapf(err, "postgres: put artifact %s/%s", caseID, name)
}

func (s *PostgresStore) GetArtifact(ctx context.Context, caseID, name string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, sqlGetArtifact, caseID, name).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "artifact %s/%s", caseID, name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get artifact %s/%s", caseID, name)
	}
	return data, nil
}

func (s *PostgresStore) ListArtifacts(ctx context.Context, caseID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, sqlListArtifacts, caseID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list artifacts")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan artifact name")
		}
		names = append(names, n)
	}
	return names, eris.Wrap(rows.Err(), "postgres: list artifacts iterate")
}

func (s *PostgresStore) SaveEvaluation(ctx context.Context, ev *model.Evaluation) error {
	if err := validateEvaluation(ev); err != nil {
		return err
	}
	record, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evaluation")
	}
	_, err = s.pool.Exec(ctx, sqlSaveEvaluation,
		ev.ID, ev.CaseID, string(ev.Decision.Status), ev.Decision.Score, record, ev.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert evaluation %s", ev.ID)
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]model.Evaluation, error) {
	query := `SELECT record FROM evaluations WHERE 1=1`
	var args []any
	argN := 1

	if filter.CaseID != "" {
		query += fmt.Sprintf(` AND case_id = $%d`, argN)
		args = append(args, filter.CaseID)
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argN)
		args = append(args, string(filter.Status))
		argN++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argN)
	args = append(args, filter.limit())
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evaluations")
	}
	defer rows.Close()

	var out []model.Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list evaluations iterate")
}
