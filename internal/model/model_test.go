package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var doc struct {
		A Text `json:"a"`
		B Text `json:"b"`
		C Text `json:"c"`
		D Text `json:"d"`
		E Text `json:"e"`
	}
	raw := `{"a":"$1,200.50","b":742,"c":null,"d":true,"e":{"nested":1}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, "$1,200.50", doc.A.String())
	assert.Equal(t, "742", doc.B.String())
	assert.Empty(t, doc.C.String())
	assert.Equal(t, "true", doc.D.String())
	assert.Empty(t, doc.E.String())
}

func TestParseDocumentType(t *testing.T) {
	t.Parallel()

	dt, err := ParseDocumentType("bank_statements")
	require.NoError(t, err)
	assert.Equal(t, DocBankStatement, dt)

	dt, err = ParseDocumentType(" Credit-Reports ")
	require.NoError(t, err)
	assert.Equal(t, DocCreditReport, dt)

	_, err = ParseDocumentType("payslips")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDocumentType))
}

func TestHolderName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dt   DocumentType
		raw  string
		want string
	}{
		{DocBankStatement, `{"account_holder_name":"Jane Doe"}`, "Jane Doe"},
		{DocCreditReport, `{"full_name":" Jane Doe "}`, "Jane Doe"},
		{DocIdentity, `{"full_name":"JANE DOE"}`, "JANE DOE"},
		{DocIncomeProof, `{"employee_name":"Jane Doe"}`, "Jane Doe"},
		{DocTaxStatement, `{"taxpayer_first_name":"Jane","taxpayer_last_name":"Doe"}`, "Jane Doe"},
		{DocTaxStatement, `{"taxpayer_last_name":"Doe"}`, "Doe"},
		{DocUtilityBill, `{"customer_name":"Jane Doe"}`, "Jane Doe"},
		{DocUtilityBill, `{}`, ""},
	}
	for _, tt := range tests {
		got, err := HolderName(tt.dt, []byte(tt.raw))
		require.NoError(t, err, tt.dt)
		assert.Equal(t, tt.want, got, tt.dt)
	}

	_, err := HolderName(DocBankStatement, []byte(`not json`))
	assert.Error(t, err)
}

func TestDocumentType_Label(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bank statement", DocBankStatement.Label())
	assert.Equal(t, "utility bills", DocUtilityBill.Label())
	assert.Equal(t, "other", DocumentType("other").Label())
}

func TestLandmarkPair_JSONMapKey(t *testing.T) {
	t.Parallel()

	in := map[LandmarkPair]float64{
		{A: LandmarkMRZ, B: LandmarkPhoto}: 0.0123,
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"MRZ↔Photo":0.0123}`, string(b))

	var out map[LandmarkPair]float64
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	var bad LandmarkPair
	assert.Error(t, bad.UnmarshalText([]byte("MRZ-Photo")))
}

func TestPairs(t *testing.T) {
	t.Parallel()

	got := Pairs(Landmarks)
	assert.Equal(t, []LandmarkPair{
		{A: LandmarkMRZ, B: LandmarkPhoto},
		{A: LandmarkMRZ, B: LandmarkEagle},
		{A: LandmarkPhoto, B: LandmarkEagle},
	}, got)
	assert.Empty(t, Pairs([]Landmark{LandmarkMRZ}))
}

func TestBoundingBox_Area(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1245.0*119.0, BoundingBox{3, 694, 1248, 813}.Area(), 1e-9)
	assert.InDelta(t, 50.0, BoundingBox{10, 10, 5, 20}.Area(), 1e-9)
}

func TestBoundingBox_Center(t *testing.T) {
	t.Parallel()

	x, y := BoundingBox{3.9, 694.2, 1248.7, 813.5}.Center()
	assert.Equal(t, 625, x)
	assert.Equal(t, 753, y)
}

func TestKPIBundle_SetAndPresent(t *testing.T) {
	t.Parallel()

	var b KPIBundle
	require.NoError(t, b.Set(DocUtilityBill, []byte(`{"Consistency":"Yes"}`)))
	require.NoError(t, b.Set(DocBankStatement, []byte(`{"average_monthly_balance":1200.5}`)))

	assert.Equal(t, []DocumentType{DocBankStatement, DocUtilityBill}, b.Present())
	require.NotNil(t, b.Utility)
	assert.Equal(t, "Yes", b.Utility.Consistency)
	assert.InDelta(t, 1200.5, b.Bank.AverageMonthlyBalance, 1e-9)
	assert.Nil(t, b.Part(DocCreditReport))

	assert.Error(t, b.Set(DocIdentity, []byte(`[`)))
	assert.Error(t, b.Set(DocumentType("x"), []byte(`{}`)))
}

func TestArtifactNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "income-proof", ExtractionArtifact(DocIncomeProof))
	assert.Equal(t, "income-proof_kpis", KPIArtifact(DocIncomeProof))
}
