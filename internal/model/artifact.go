package model

// Per-case artifact names.
const (
	ArtifactFraudReport       = "fraud_report"
	ArtifactKPIsFinal         = "kpis_final"
	ArtifactFinalDecision     = "final_decision"
	ArtifactPassportReport    = "identity-documents_fraud_report"
	ArtifactPassportAnnotated = "identity-documents_components_analyze"
)

// ExtractionArtifact names the raw extraction of dt.
func ExtractionArtifact(dt DocumentType) string { return string(dt) }

// KPIArtifact names the KPI set of dt.
func KPIArtifact(dt DocumentType) string { return string(dt) + "_kpis" }
