package scorer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwriting-cli/internal/config"
	"github.com/sells-group/underwriting-cli/internal/model"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func TestNormalize_SumsToOne(t *testing.T) {
	t.Parallel()

	sets := []config.ScoringConfig{
		DefaultWeights(),
		{Income: 20, Credit: 23, DelinquencyRisk: 18, DTI: 23, Liquidity: 9, IncomeConsistency: 3, EmploymentStability: 2, ResidencyStability: 2},
		{Credit: 1},
		{Income: 0.1, Credit: 0.7, DelinquencyRisk: 3, DTI: 0, Liquidity: 11, IncomeConsistency: 0.001, EmploymentStability: 5, ResidencyStability: 42},
	}
	for _, c := range sets {
		s, err := New(c)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, WeightSum(s.Weights()), 1e-9)
	}
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateConfig(DefaultWeights()))

	err := ValidateConfig(config.ScoringConfig{Income: -1, Credit: 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "income weight must be >= 0")

	err = ValidateConfig(config.ScoringConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weight sum must be > 0")

	_, err = New(config.ScoringConfig{})
	assert.Error(t, err)
}

func TestAggregate_RenormalisesOverPresentScores(t *testing.T) {
	t.Parallel()

	s, err := New(DefaultWeights())
	require.NoError(t, err)

	// Four of eight present: income, credit, delinquency, liquidity.
	sub := model.SubScores{
		Income:          f(100),
		Credit:          f(80),
		DelinquencyRisk: f(50),
		Liquidity:       f(40),
	}
	want := (0.20*100 + 0.23*80 + 0.18*50 + 0.09*40) / (0.20 + 0.23 + 0.18 + 0.09)
	got := s.Aggregate(sub)
	require.NotNil(t, got)
	assert.InDelta(t, math.Round(want*100)/100, *got, 1e-9)
}

func TestAggregate_AllNil(t *testing.T) {
	t.Parallel()

	s, err := New(DefaultWeights())
	require.NoError(t, err)
	assert.Nil(t, s.Aggregate(model.SubScores{}))

	// An empty bundle still carries delinquency and residency.
	final := s.Score(model.KPIBundle{})
	require.NotNil(t, final.FinalWeightedScore)
	assert.InDelta(t, 90.0, *final.FinalWeightedScore, 1e-9)
}

func TestAggregate_ZeroWeightDimension(t *testing.T) {
	t.Parallel()

	s, err := New(config.ScoringConfig{Credit: 1})
	require.NoError(t, err)
	assert.Nil(t, s.Aggregate(model.SubScores{Income: f(100)}))
	assert.Equal(t, f(75), s.Aggregate(model.SubScores{Income: f(100), Credit: f(75)}))
}

func TestScore_FromBundle(t *testing.T) {
	t.Parallel()

	s, err := New(DefaultWeights())
	require.NoError(t, err)

	b := model.KPIBundle{
		DebtToIncome: f(0.30),
		Credit: &model.CreditReportKPIs{
			RepresentativeCreditScore: i(720),
			Delinquency:               model.DelinquencyProfile{ThirtyDay: 1},
			NegativeEvents:            model.NegativeEvents{Collections: 1},
			Employment:                model.EmploymentProfile{EmploymentTenureMonths: i(30)},
		},
		Bank:    &model.BankStatementKPIs{AverageMonthlyBalance: 3000},
		Paystub: &model.PaystubKPIs{RecencyDays: i(20), StabilityFlag: "stable"},
		Utility: &model.UtilityKPIs{Consistency: "Yes"},
	}
	got := s.Score(b)

	assert.Equal(t, f(100), got.SubScores.Income)
	require.NotNil(t, got.SubScores.Credit)
	assert.InDelta(t, 88, *got.SubScores.Credit, 1e-9)
	assert.Equal(t, f(77), got.SubScores.DelinquencyRisk)
	assert.Equal(t, f(80), got.SubScores.DTI)
	assert.Equal(t, f(80), got.SubScores.Liquidity)
	assert.Equal(t, f(100), got.SubScores.IncomeConsistency)
	assert.Equal(t, f(100), got.SubScores.EmploymentStability)
	assert.Equal(t, f(100), got.SubScores.ResidencyStability)

	want := 0.20*100 + 0.23*88 + 0.18*77 + 0.23*80 + 0.09*80 + 0.03*100 + 0.02*100 + 0.02*100
	require.NotNil(t, got.FinalWeightedScore)
	assert.InDelta(t, math.Round(want*100)/100, *got.FinalWeightedScore, 1e-9)
}

func TestSubScores_MissingDocuments(t *testing.T) {
	t.Parallel()

	got := SubScores(model.KPIBundle{Paystub: &model.PaystubKPIs{}})
	assert.Nil(t, got.Income)
	assert.Nil(t, got.IncomeConsistency)
	assert.Nil(t, got.DTI)
	assert.Nil(t, got.Liquidity)
	assert.Nil(t, got.Credit)
	assert.Nil(t, got.EmploymentStability)
	// No credit report is a clean history; no bill has no consistency label.
	assert.Equal(t, f(100), got.DelinquencyRisk)
	assert.Equal(t, f(0), got.ResidencyStability)
}

func TestScore_BankOnlyCase(t *testing.T) {
	t.Parallel()

	s, err := New(DefaultWeights())
	require.NoError(t, err)

	got := s.Score(model.KPIBundle{Bank: &model.BankStatementKPIs{AverageMonthlyBalance: 6000}})
	assert.Equal(t, f(100), got.SubScores.Liquidity)
	assert.Equal(t, f(100), got.SubScores.DelinquencyRisk)
	assert.Equal(t, f(0), got.SubScores.ResidencyStability)

	// (0.18*100 + 0.09*100 + 0.02*0) / 0.29
	require.NotNil(t, got.FinalWeightedScore)
	assert.InDelta(t, 93.10, *got.FinalWeightedScore, 1e-9)
}

func TestScoreIncome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		days int
		want float64
	}{
		{0, 100}, {45, 100}, {90, 60}, {180, 30}, {365, 10}, {366, 0},
	}
	for _, tt := range tests {
		got := scoreIncome(tt.days)
		require.NotNil(t, got)
		assert.InDelta(t, tt.want, *got, 1e-9, "days %d", tt.days)
	}
	assert.InDelta(t, 80.44, *scoreIncome(67), 0.01)
	assert.Nil(t, scoreIncome(-1))
}

func TestScoreCredit(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 100, scoreCredit(800), 1e-9)
	assert.InDelta(t, 100, scoreCredit(750), 1e-9)
	assert.InDelta(t, 99.6, scoreCredit(749), 1e-9)
	assert.InDelta(t, 80, scoreCredit(700), 1e-9)
	assert.InDelta(t, 60, scoreCredit(650), 1e-9)
	assert.InDelta(t, 40, scoreCredit(600), 1e-9)
	assert.InDelta(t, 20, scoreCredit(599), 1e-9)
}

func TestStepCurves(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 100, scoreDTI(0.25), 1e-9)
	assert.InDelta(t, 80, scoreDTI(0.36), 1e-9)
	assert.InDelta(t, 60, scoreDTI(0.43), 1e-9)
	assert.InDelta(t, 20, scoreDTI(0.44), 1e-9)

	assert.InDelta(t, 100, scoreLiquidity(5000), 1e-9)
	assert.InDelta(t, 80, scoreLiquidity(2500), 1e-9)
	assert.InDelta(t, 60, scoreLiquidity(1000), 1e-9)
	assert.InDelta(t, 40, scoreLiquidity(0), 1e-9)
	assert.InDelta(t, 20, scoreLiquidity(-0.01), 1e-9)

	assert.InDelta(t, 100, scoreEmployment(24), 1e-9)
	assert.InDelta(t, 70, scoreEmployment(12), 1e-9)
	assert.InDelta(t, 40, scoreEmployment(11), 1e-9)

	assert.InDelta(t, 100, scoreResidency("Yes"), 1e-9)
	assert.InDelta(t, 0, scoreResidency("No"), 1e-9)
	assert.InDelta(t, 60, scoreResidency("partial"), 1e-9)
	assert.InDelta(t, 0, scoreResidency(""), 1e-9)
}

func TestScoreDelinquency(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 100, scoreDelinquency(0, 0, 0, 0, 0), 1e-9)
	assert.InDelta(t, 92, scoreDelinquency(1, 0, 0, 0, 0), 1e-9)
	// Capped counts: 5*8 = 40 regardless of 9 late payments.
	assert.InDelta(t, 60, scoreDelinquency(9, 0, 0, 0, 0), 1e-9)
	assert.InDelta(t, 0, scoreDelinquency(0, 0, 0, 3, 0), 1e-9)
	assert.InDelta(t, 0, scoreDelinquency(5, 5, 5, 5, 2), 1e-9)
}

func TestScoreIncomeStability(t *testing.T) {
	t.Parallel()

	assert.Nil(t, scoreIncomeStability(""))
	assert.Equal(t, f(100), scoreIncomeStability("Stable"))
	assert.Equal(t, f(60), scoreIncomeStability("variable"))
	assert.Equal(t, f(80), scoreIncomeStability("unknown"))
}
