// Package store persists case artifacts and evaluation records.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// ErrNotFound is returned when an artifact or record does not exist.
var ErrNotFound = eris.New("store: not found")

// EvaluationFilter specifies criteria for listing evaluations.
type EvaluationFilter struct {
	CaseID string       `json:"case_id,omitempty"`
	Status model.Status `json:"status,omitempty"`
	Limit  int          `json:"limit,omitempty"`
	Offset int          `json:"offset,omitempty"`
}

// Store defines the persistence interface for case artifacts.
type Store interface {
	// Artifacts. Put overwrites an existing artifact of the same name.
	PutArtifact(ctx context.Context, caseID, name string, data []byte) error
	GetArtifact(ctx context.Context, caseID, name string) ([]byte, error)
	ListArtifacts(ctx context.Context, caseID string) ([]string, error)

	// Evaluations, newest first.
	SaveEvaluation(ctx context.Context, ev *model.Evaluation) error
	ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]model.Evaluation, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// PutJSON marshals v and stores it as an artifact.
func PutJSON(ctx context.Context, s Store, caseID, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "store: marshal %s", name)
	}
	return s.PutArtifact(ctx, caseID, name, data)
}

// GetJSON loads an artifact and unmarshals it into v.
func GetJSON(ctx context.Context, s Store, caseID, name string, v any) error {
	data, err := s.GetArtifact(ctx, caseID, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "store: unmarshal %s", name)
	}
	return nil
}

const defaultListLimit = 100

func (f EvaluationFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func validateKey(caseID, name string) error {
	if caseID == "" {
		return eris.New("store: case id is required")
	}
	if name == "" {
		return eris.New("store: artifact name is required")
	}
	return nil
}

func validateEvaluation(ev *model.Evaluation) error {
	if ev == nil || ev.ID == "" || ev.CaseID == "" {
		return eris.New("store: evaluation needs an id and a case id")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return nil
}
