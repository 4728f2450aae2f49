// Package textfraud checks that the applicant name agrees across a case's
// documents.
package textfraud

import (
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// WarningMessage accompanies every Warning result.
const WarningMessage = "Name inconsistencies detected across documents. " +
	"Please expand the section below to view the documents with mismatched names."

// DefaultThreshold is the similarity below which two names disagree.
const DefaultThreshold = 0.95

// Order is the fixed order in which document names are compared and reported.
var Order = []model.DocumentType{
	model.DocBankStatement,
	model.DocCreditReport,
	model.DocIdentity,
	model.DocIncomeProof,
	model.DocTaxStatement,
	model.DocUtilityBill,
}

// Detector compares holder names with TF-IDF cosine similarity.
type Detector struct {
	threshold float64
}

// New returns a Detector. A non-positive threshold uses DefaultThreshold.
func New(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold}
}

// Check compares the names of every type in Order. A missing name is compared
// as the empty string, which matches nothing.
func (d *Detector) Check(names map[model.DocumentType]string) (model.TextFraudResult, error) {
	docs := make([]string, len(Order))
	labels := make([]string, len(Order))
	for i, dt := range Order {
		docs[i] = names[dt]
		labels[i] = dt.Label()
	}

	mismatched, err := d.Mismatches(docs, labels)
	if err != nil {
		return model.TextFraudResult{}, err
	}
	if len(mismatched) == 0 {
		return model.TextFraudResult{Type: model.TextFraudAuthentic, Text: []string{}}, nil
	}
	zap.L().Info("textfraud: name mismatch", zap.Strings("documents", mismatched))
	return model.TextFraudResult{
		Type:    model.TextFraudWarning,
		Message: WarningMessage,
		Text:    mismatched,
	}, nil
}

// Mismatches returns the labels whose names disagree with the rest.
//
// For every column of the similarity matrix it collects the other rows below
// the threshold and tallies how often each label is collected. Labels with a
// tally strictly greater than the smallest tally are reported, in the order
// they were first collected. When every label is equally dissimilar the
// tallies tie and nothing is reported.
func (d *Detector) Mismatches(docs, labels []string) ([]string, error) {
	sim, err := similarityMatrix(docs)
	if err != nil {
		return nil, err
	}

	var order []string
	tally := make(map[string]int)
	for col := range sim {
		for row := range sim {
			if row == col || sim[row][col] >= d.threshold {
				continue
			}
			if _, ok := tally[labels[row]]; !ok {
				order = append(order, labels[row])
			}
			tally[labels[row]]++
		}
	}
	if len(order) == 0 {
		return nil, nil
	}

	lowest := tally[order[0]]
	for _, l := range order {
		lowest = min(lowest, tally[l])
	}
	var out []string
	for _, l := range order {
		if tally[l] > lowest {
			out = append(out, l)
		}
	}
	return out, nil
}
