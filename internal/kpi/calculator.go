// Package kpi turns extracted document fields into per-document KPI sets.
package kpi

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/model"
)

// Options configures a Calculator.
type Options struct {
	Bands            CreditBands
	RecencyDays      int
	EffectiveTaxRate float64
	// Now is the clock used for recency and expiry. Defaults to time.Now.
	Now func() time.Time
}

// Calculator dispatches raw extractions to the calculator for their type.
type Calculator struct {
	opts Options
}

// NewCalculator returns a Calculator, filling unset options with defaults.
func NewCalculator(opts Options) *Calculator {
	if opts.Bands == (CreditBands{}) {
		opts.Bands = DefaultCreditBands()
	}
	if opts.RecencyDays <= 0 {
		opts.RecencyDays = 90
	}
	if opts.EffectiveTaxRate == 0 {
		opts.EffectiveTaxRate = 0.22
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Calculator{opts: opts}
}

// Compute decodes raw as the extraction for dt and returns its KPI set as a
// pointer to the matching model type.
func (c *Calculator) Compute(dt model.DocumentType, raw []byte) (any, error) {
	now := c.opts.Now()
	switch dt {
	case model.DocBankStatement:
		var doc model.BankStatement
		if err := decode(dt, raw, &doc); err != nil {
			return nil, err
		}
		k := BankStatement(doc)
		return &k, nil
	case model.DocCreditReport:
		var doc model.CreditReport
		if err := decode(dt, raw, &doc); err != nil {
			return nil, err
		}
		k := CreditReport(doc, c.opts.Bands, now)
		return &k, nil
	case model.DocIdentity:
		var doc model.IdentityDocument
		if err := decode(dt, raw, &doc); err != nil {
			return nil, err
		}
		k := Identity(doc, now)
		return &k, nil
	case model.DocIncomeProof:
		var doc model.IncomeProof
		if err := decode(dt, raw, &doc); err != nil {
			return nil, err
		}
		k := Paystub(doc, c.opts.RecencyDays, now)
		return &k, nil
	case model.DocTaxStatement:
		var doc model.TaxStatement
		if err := decode(dt, raw, &doc); err != nil {
			return nil, err
		}
		k := Tax(doc, c.opts.EffectiveTaxRate)
		return &k, nil
	case model.DocUtilityBill:
		var doc model.UtilityBill
		if err := decode(dt, raw, &doc); err != nil {
			return nil, err
		}
		k, err := Utility(doc, c.opts.RecencyDays, now)
		if err != nil {
			return nil, err
		}
		return &k, nil
	default:
		return nil, eris.Wrapf(model.ErrUnknownDocumentType, "%q", dt)
	}
}

func decode(dt model.DocumentType, raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return eris.Wrapf(err, "kpi: decode %s extraction", dt)
	}
	return nil
}
