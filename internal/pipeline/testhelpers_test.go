package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwriting-cli/internal/config"
	"github.com/sells-group/underwriting-cli/internal/imagefraud"
	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/notify"
	"github.com/sells-group/underwriting-cli/internal/store"
)

var testNow = time.Date(2024, 6, 25, 12, 0, 0, 0, time.UTC)

// --- Store fake ---

type memStore struct {
	mu          sync.Mutex
	artifacts   map[string]map[string][]byte
	evaluations []model.Evaluation
	failPut     string
}

func newMemStore() *memStore {
	return &memStore{artifacts: map[string]map[string][]byte{}}
}

func (s *memStore) PutArtifact(_ context.Context, caseID, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == s.failPut {
		return eris.Errorf("memstore: put %s failed", name)
	}
	if s.artifacts[caseID] == nil {
		s.artifacts[caseID] = map[string][]byte{}
	}
	s.artifacts[caseID][name] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) GetArtifact(_ context.Context, caseID, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.artifacts[caseID][name]
	if !ok {
		return nil, eris.Wrapf(store.ErrNotFound, "artifact %s/%s", caseID, name)
	}
	return data, nil
}

func (s *memStore) ListArtifacts(_ context.Context, caseID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for n := range s.artifacts[caseID] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memStore) SaveEvaluation(_ context.Context, ev *model.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluations = append(s.evaluations, *ev)
	return nil
}

func (s *memStore) ListEvaluations(_ context.Context, f store.EvaluationFilter) ([]model.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Evaluation
	for _, ev := range s.evaluations {
		if f.CaseID == "" || ev.CaseID == f.CaseID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memStore) Migrate(context.Context) error { return nil }
func (s *memStore) Close() error                  { return nil }

func (s *memStore) has(caseID, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.artifacts[caseID][name]
	return ok
}

// --- Detector Mock ---

type mockDetector struct {
	mock.Mock
}

func (m *mockDetector) Detect(ctx context.Context, img []byte, filename string) (model.PassportGeometry, error) {
	args := m.Called(ctx, img, filename)
	return args.Get(0).(model.PassportGeometry), args.Error(1)
}

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, o notify.Outcome) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

// --- Fixtures ---

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.KPI.RecencyDays = 90
	cfg.KPI.EffectiveTaxRate = 0.22
	cfg.KPI.CreditBands = config.CreditBandsConfig{Excellent: 750, Good: 700, Fair: 650}
	cfg.Scoring = config.ScoringConfig{
		Income:              0.20,
		Credit:              0.23,
		DelinquencyRisk:     0.18,
		DTI:                 0.23,
		Liquidity:           0.09,
		IncomeConsistency:   0.03,
		EmploymentStability: 0.02,
		ResidencyStability:  0.02,
	}
	cfg.TextFraud.SimilarityThreshold = 0.95
	cfg.Decision.ApproveThreshold = 60
	cfg.Decision.ReviewThreshold = 40
	cfg.Passport.PhysicalWidthCM = 12.5
	return cfg
}

func newTestPipeline(t *testing.T, st store.Store, det PassportDetector, n notify.Notifier) *Pipeline {
	t.Helper()
	p, err := New(testConfig(), st, det, n,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { return "ev-1" }),
	)
	require.NoError(t, err)
	return p
}

// caseDocs returns one extraction per document type, all naming Jane Doe
// unless overridden.
func caseDocs(overrides map[model.DocumentType]string) map[model.DocumentType][]byte {
	docs := map[model.DocumentType]string{
		model.DocBankStatement: `{"account_holder_name":"Jane Doe","transactions_table":[
			{"date":"May-01-24","description":"Previous Balance","amount":"$2,000.00","type":""},
			{"date":"May-03-24","description":"Payroll","amount":"$5,000.00","type":"Credit"},
			{"date":"May-10-24","description":"Rent","amount":"$1,500.00","type":"Debit"},
			{"date":"Jun-03-24","description":"Payroll","amount":"$5,000.00","type":"Credit"},
			{"date":"Jun-10-24","description":"Rent","amount":"$1,500.00","type":"Debit"}]}`,
		model.DocCreditReport: `{"full_name":"Jane Doe","file_pulled_date":"06/01/2024","vantage_score_3_0":"781",
			"insight_score":"770","thirty_day_delinquencies":"0","sixty_day_delinquencies":"0",
			"ninety_day_delinquencies":"0","employment_status":"Employed","total_time_with_employer":"5 years"}`,
		model.DocIdentity:     `{"full_name":"Jane Doe","expiry_date":"2030-01-01"}`,
		model.DocIncomeProof:  `{"employee_name":"Jane Doe","pay_date":"06/20/2024","gross_earnings_current":"5000","net_pay_current":"3800"}`,
		model.DocTaxStatement: `{"taxpayer_first_name":"Jane","taxpayer_last_name":"Doe","total_income":"120000","total_wages":"120000"}`,
		model.DocUtilityBill:  `{"customer_name":"Jane Doe","statement_date":"2024-06-10","total_amount_due":"$60"}`,
	}
	for dt, raw := range overrides {
		docs[dt] = raw
	}
	out := make(map[model.DocumentType][]byte, len(docs))
	for dt, raw := range docs {
		out[dt] = []byte(raw)
	}
	return out
}

// ingestAll ingests every document except identity, which needs an image.
func ingestAll(t *testing.T, p *Pipeline, caseID string, docs map[model.DocumentType][]byte) {
	t.Helper()
	for _, dt := range model.DocumentTypes {
		if dt == model.DocIdentity {
			continue
		}
		_, err := p.Ingest(context.Background(), caseID, dt, docs[dt])
		require.NoError(t, err, dt)
	}
}

func passportPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 320, 240))))
	return buf.Bytes()
}

// referenceGeometry is a detection that matches the baseline exactly.
func referenceGeometry() model.PassportGeometry {
	return imagefraud.Measure(imagefraud.DefaultReference().Components, 1248, 900, 12.5)
}
