package store

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// RedisStore implements Store on a Redis server. Artifacts expire after ttl
// when it is positive.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis connects to the redis:// URL and pings it.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "redis: ping")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func artifactKey(caseID, name string) string { return "case:" + caseID + ":artifact:" + name }

func artifactIndexKey(caseID string) string { return "case:" + caseID + ":artifacts" }

func evaluationKey(id string) string { return "evaluation:" + id }

func evaluationIndexKey(caseID string) string {
	if caseID == "" {
		return "evaluations"
	}
	return "case:" + caseID + ":evaluations"
}

// Migrate only checks connectivity; Redis needs no schema.
func (s *RedisStore) Migrate(ctx context.Context) error {
	return eris.Wrap(s.client.Ping(ctx).Err(), "redis: ping")
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) PutArtifact(ctx context.Context, caseID, name string, data []byte) error {
	if err := validateKey(caseID, name); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, artifactKey(caseID, name), data, s.ttl)
		p.SAdd(ctx, artifactIndexKey(caseID), name)
		if s.ttl > 0 {
			p.Expire(ctx, artifactIndexKey(caseID), s.ttl)
		}
		return nil
	})
	return eris.Wrapf(err, "redis: put artifact %s/%s", caseID, name)
}

func (s *RedisStore) GetArtifact(ctx context.Context, caseID, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, artifactKey(caseID, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, eris.Wrapf(ErrNotFound, "artifact %s/%s", caseID, name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get artifact %s/%s", caseID, name)
	}
	return data, nil
}

func (s *RedisStore) ListArtifacts(ctx context.Context, caseID string) ([]string, error) {
	names, err := s.client.SMembers(ctx, artifactIndexKey(caseID)).Result()
	if err != nil {
		return nil, eris.Wrap(err, "redis: list artifacts")
	}
	// Drop names whose artifact already expired.
	var live []string
	for _, n := range names {
		exists, err := s.client.Exists(ctx, artifactKey(caseID, n)).Result()
		if err != nil {
			return nil, eris.Wrap(err, "redis: check artifact")
		}
		if exists > 0 {
			live = append(live, n)
		}
	}
	slices.Sort(live)
	return live, nil
}

func (s *RedisStore) SaveEvaluation(ctx context.Context, ev *model.Evaluation) error {
	if err := validateEvaluation(ev); err != nil {
		return err
	}
	record, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "redis: marshal evaluation")
	}
	member := redis.Z{Score: float64(ev.CreatedAt.UnixMilli()), Member: ev.ID}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, evaluationKey(ev.ID), record, 0)
		p.ZAdd(ctx, evaluationIndexKey(""), member)
		p.ZAdd(ctx, evaluationIndexKey(ev.CaseID), member)
		return nil
	})
	return eris.Wrapf(err, "redis: save evaluation %s", ev.ID)
}

func (s *RedisStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]model.Evaluation, error) {
	ids, err := s.client.ZRevRange(ctx, evaluationIndexKey(filter.CaseID), 0, -1).Result()
	if err != nil {
		return nil, eris.Wrap(err, "redis: list evaluations")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = evaluationKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, eris.Wrap(err, "redis: load evaluations")
	}
	return filterEvaluations(vals, filter)
}

// filterEvaluations decodes MGET results and applies status, offset and
// limit. Missing keys come back as nil and are skipped.
func filterEvaluations(vals []any, filter EvaluationFilter) ([]model.Evaluation, error) {
	var out []model.Evaluation
	skipped := 0
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var ev model.Evaluation
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, eris.Wrap(err, "redis: unmarshal evaluation")
		}
		if filter.Status != "" && ev.Decision.Status != filter.Status {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, ev)
		if len(out) == filter.limit() {
			break
		}
	}
	return out, nil
}
