package scorer

import (
	"math"
	"strings"
)

// scoreIncome rewards a recent pay stub: 100 up to 45 days old, falling
// linearly to 60 at 90 days, 30 at 180 days, 10 at 365 days, then 0.
func scoreIncome(daysOld int) *float64 {
	d := float64(daysOld)
	var s float64
	switch {
	case daysOld < 0:
		return nil
	case daysOld <= 45:
		s = 100
	case daysOld <= 90:
		s = 100 - (d-45)*(40.0/45)
	case daysOld <= 180:
		s = 60 - (d-90)*(30.0/90)
	case daysOld <= 365:
		s = 30 - (d-180)*(20.0/185)
	default:
		s = 0
	}
	return &s
}

func scoreCredit(cs float64) float64 {
	switch {
	case cs >= 750:
		return 100
	case cs >= 700:
		return 80 + (cs-700)*0.4
	case cs >= 650:
		return 60 + (cs-650)*0.4
	case cs >= 600:
		return 40 + (cs-600)*0.4
	default:
		return 20
	}
}

func scoreDTI(dti float64) float64 {
	switch {
	case dti <= 0.25:
		return 100
	case dti <= 0.36:
		return 80
	case dti <= 0.43:
		return 60
	default:
		return 20
	}
}

func scoreLiquidity(balance float64) float64 {
	switch {
	case balance >= 5000:
		return 100
	case balance >= 2500:
		return 80
	case balance >= 1000:
		return 60
	case balance >= 0:
		return 40
	default:
		return 20
	}
}

// scoreDelinquency starts at 100 and subtracts capped penalties per event.
func scoreDelinquency(d30, d60, d90, bankruptcies, collections int) float64 {
	s := 100.0
	s -= float64(min(d30, 5)) * 8
	s -= float64(min(d60, 5)) * 18
	s -= float64(min(d90, 5)) * 28
	s -= float64(min(collections, 5)) * 15
	s -= float64(min(bankruptcies, 2)) * 50
	return math.Max(0, math.Min(100, s))
}

func scoreIncomeStability(flag string) *float64 {
	if flag == "" {
		return nil
	}
	var s float64
	switch strings.ToLower(flag) {
	case "stable", "consistent":
		s = 100
	case "variable", "volatile":
		s = 60
	default:
		s = 80
	}
	return &s
}

func scoreEmployment(months int) float64 {
	switch {
	case months >= 24:
		return 100
	case months >= 12:
		return 70
	default:
		return 40
	}
}

// scoreResidency reads the utility bill's billing consistency label.
func scoreResidency(label string) float64 {
	lower := strings.ToLower(label)
	switch {
	case lower == "":
		return 0
	case strings.Contains(lower, "yes"):
		return 100
	case strings.Contains(lower, "no"):
		return 0
	default:
		return 60
	}
}
