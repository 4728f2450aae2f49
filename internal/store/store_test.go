package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwriting-cli/internal/config"
	"github.com/sells-group/underwriting-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func evaluation(id, caseID string, status model.Status, score float64, at time.Time) *model.Evaluation {
	final := score
	return &model.Evaluation{
		ID:         id,
		CaseID:     caseID,
		Decision:   model.Decision{Status: status, Reason: "r", Score: score},
		FinalScore: model.FinalScore{FinalWeightedScore: &final},
		TextFraud:  model.TextFraudResult{Type: model.TextFraudAuthentic, Text: []string{}},
		CreatedAt:  at,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("PutAndGetArtifact", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.PutArtifact(ctx, "case-1", "bank-statements", []byte(`{"a":1}`)))
		got, err := s.GetArtifact(ctx, "case-1", "bank-statements")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(got))
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.PutArtifact(ctx, "case-1", "kpis_final", []byte("old")))
		require.NoError(t, s.PutArtifact(ctx, "case-1", "kpis_final", []byte("new")))
		got, err := s.GetArtifact(ctx, "case-1", "kpis_final")
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetArtifact(context.Background(), "case-1", "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("CasesAreIsolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.PutArtifact(ctx, "case-1", "final_decision", []byte("one")))
		require.NoError(t, s.PutArtifact(ctx, "case-2", "final_decision", []byte("two")))

		got, err := s.GetArtifact(ctx, "case-2", "final_decision")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("ListArtifacts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, n := range []string{"tax-statements", "bank-statements", "bank-statements_kpis"} {
			require.NoError(t, s.PutArtifact(ctx, "case-1", n, []byte("{}")))
		}
		require.NoError(t, s.PutArtifact(ctx, "case-2", "utility-bills", []byte("{}")))

		names, err := s.ListArtifacts(ctx, "case-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"bank-statements", "bank-statements_kpis", "tax-statements"}, names)
	})

	t.Run("RejectsEmptyKey", func(t *testing.T) {
		s := newStore(t)
		assert.Error(t, s.PutArtifact(context.Background(), "", "x", nil))
		assert.Error(t, s.PutArtifact(context.Background(), "case", "", nil))
	})

	t.Run("JSONHelpers", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		in := model.Decision{Status: model.StatusApproved, Reason: "ok", Score: 71.5}
		require.NoError(t, PutJSON(ctx, s, "case-1", model.ArtifactFinalDecision, in))

		var out model.Decision
		require.NoError(t, GetJSON(ctx, s, "case-1", model.ArtifactFinalDecision, &out))
		assert.Equal(t, in, out)

		err := GetJSON(ctx, s, "case-1", "missing", &out)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Evaluations", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		require.NoError(t, s.SaveEvaluation(ctx, evaluation("e1", "case-1", model.StatusRejected, 20, base)))
		require.NoError(t, s.SaveEvaluation(ctx, evaluation("e2", "case-1", model.StatusApproved, 70, base.Add(time.Hour))))
		require.NoError(t, s.SaveEvaluation(ctx, evaluation("e3", "case-2", model.StatusApproved, 80, base.Add(2*time.Hour))))

		all, err := s.ListEvaluations(ctx, EvaluationFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"e3", "e2", "e1"}, []string{all[0].ID, all[1].ID, all[2].ID})
		assert.InDelta(t, 80, *all[0].FinalScore.FinalWeightedScore, 1e-9)

		byCase, err := s.ListEvaluations(ctx, EvaluationFilter{CaseID: "case-1"})
		require.NoError(t, err)
		assert.Len(t, byCase, 2)

		approved, err := s.ListEvaluations(ctx, EvaluationFilter{Status: model.StatusApproved, Limit: 1})
		require.NoError(t, err)
		require.Len(t, approved, 1)
		assert.Equal(t, "e3", approved[0].ID)

		paged, err := s.ListEvaluations(ctx, EvaluationFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, paged, 1)
		assert.Equal(t, "e2", paged[0].ID)
	})

	t.Run("SaveEvaluationValidates", func(t *testing.T) {
		s := newStore(t)
		assert.Error(t, s.SaveEvaluation(context.Background(), &model.Evaluation{ID: "x"}))
		assert.Error(t, s.SaveEvaluation(context.Background(), nil))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "open.db"),
	})
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	require.NoError(t, s.PutArtifact(context.Background(), "c", "n", []byte("v")))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported driver "mysql"`)
}

func TestOpen_BadRedisURL(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "redis", DatabaseURL: "http://not-redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: parse url")
}
