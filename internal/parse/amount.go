// Package parse normalizes the loosely formatted strings produced by document
// extraction into numbers and dates. Every function degrades to a zero value or
// nil instead of returning an error.
package parse

import (
	"math"
	"strconv"
	"strings"
)

var amountReplacer = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "", "\t", "")

// Amount parses a currency string such as "$1,250.40". Unparseable, empty, or
// non-finite input yields 0.
func Amount(s string) float64 {
	v := OptionalAmount(s)
	if v == nil {
		return 0
	}
	return *v
}

// OptionalAmount is Amount for callers that must distinguish "unset" from 0.
func OptionalAmount(s string) *float64 {
	cleaned := amountReplacer.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// OptionalInt parses integer counts such as "1,024" or "3.0", truncating any
// fractional part. Returns nil when the value is not numeric.
func OptionalInt(s string) *int {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	n := int(v)
	return &n
}

// IntOrZero dereferences p, treating nil as 0.
func IntOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
