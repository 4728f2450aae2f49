package kpi

import (
	"time"

	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/parse"
)

var identityLayouts = []string{
	"2006-01-02",
	"2 Jan 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"02/01/2006",
	"02-01-2006",
}

// Identity derives expiry and age indicators from a passport data page.
func Identity(doc model.IdentityDocument, now time.Time) model.IdentityKPIs {
	out := model.IdentityKPIs{
		NamePresent:    doc.FullName.String() != "",
		IssuingCountry: doc.IssuingCountry.String(),
	}
	if exp, ok := parse.DateWithLayouts(doc.ExpiryDate.String(), identityLayouts...); ok {
		days := parse.DaysBetween(now, exp)
		expired := days < 0
		out.PassportDaysToExpiry = &days
		out.PassportExpired = &expired
	}
	if dob, ok := parse.DateWithLayouts(doc.DateOfBirth.String(), identityLayouts...); ok {
		years := parse.MonthsBetween(dob, now) / 12
		out.ApplicantAgeYears = &years
	}
	return out
}
