package kpi

import (
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// Collision records a flat KPI key produced by more than one document.
type Collision struct {
	Key     string               `json:"key"`
	Sources []model.DocumentType `json:"sources"`
	Winner  model.DocumentType   `json:"winner"`
}

func (c Collision) String() string {
	return c.Key + " <- " + string(c.Winner)
}

// Flatten merges every KPI set in b into one flat map keyed by the top-level
// JSON field names. Sets are applied in model.DocumentTypes order, so the
// result does not depend on upload order; when two sets share a key the later
// type wins and the collision is logged and returned.
func Flatten(b model.KPIBundle) (map[string]any, []Collision, error) {
	flat := make(map[string]any)
	sources := make(map[string][]model.DocumentType)
	if b.DebtToIncome != nil {
		flat["debt_to_income_ratio"] = *b.DebtToIncome
	}

	for _, dt := range b.Present() {
		raw, err := json.Marshal(b.Part(dt))
		if err != nil {
			return nil, nil, eris.Wrapf(err, "kpi: encode %s kpis", dt)
		}
		var part map[string]any
		if err := json.Unmarshal(raw, &part); err != nil {
			return nil, nil, eris.Wrapf(err, "kpi: decode %s kpis", dt)
		}
		for k, v := range part {
			flat[k] = v
			sources[k] = append(sources[k], dt)
		}
	}

	var collisions []Collision
	for k, src := range sources {
		if len(src) < 2 {
			continue
		}
		c := Collision{Key: k, Sources: src, Winner: src[len(src)-1]}
		collisions = append(collisions, c)
		zap.L().Warn("kpi: key collision in bundle",
			zap.String("key", k),
			zap.Any("sources", src),
			zap.String("winner", string(c.Winner)),
		)
	}
	sort.Slice(collisions, func(i, j int) bool { return collisions[i].Key < collisions[j].Key })
	return flat, collisions, nil
}
