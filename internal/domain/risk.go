package domain

import (
	"fmt"
	"math"
)

// RiskCategory buckets a flood probability.
type RiskCategory string

const (
	RiskSafe     RiskCategory = "safe"
	RiskCaution  RiskCategory = "caution"
	RiskHighRisk RiskCategory = "high_risk"
)

// Category thresholds; a probability equal to a threshold belongs to the higher bucket.
const (
	CautionThreshold  = 0.30
	HighRiskThreshold = 0.60
)

// Interpretation is the user-facing reading of a probability.
type Interpretation struct {
	Category RiskCategory `json:"category"`
	Label    string       `json:"label"`
	Level    string       `json:"level"`
	Color    string       `json:"color"`
}

var interpretations = map[RiskCategory]Interpretation{
	RiskSafe:     {Category: RiskSafe, Label: "Aman", Level: "rendah", Color: "green"},
	RiskCaution:  {Category: RiskCaution, Label: "Waspada", Level: "sedang", Color: "yellow"},
	RiskHighRisk: {Category: RiskHighRisk, Label: "Berpotensi Banjir", Level: "tinggi", Color: "red"},
}

// Interpret maps a probability to its risk category.
func Interpret(p float64) Interpretation {
	switch {
	case p >= HighRiskThreshold:
		return interpretations[RiskHighRisk]
	case p >= CautionThreshold:
		return interpretations[RiskCaution]
	default:
		return interpretations[RiskSafe]
	}
}

// ValidateProbability rejects values outside [0, 1].
func ValidateProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: probability %v outside [0, 1]", ErrClassifier, p)
	}
	return nil
}
