package domain

import "time"

// PredictionSnapshot is the current prediction for one location. It is
// replaced wholesale on every successful refresh; no history is kept.
type PredictionSnapshot struct {
	Slug            string         `json:"slug"`
	Name            string         `json:"name"`
	Group           string         `json:"group"`
	Parent          string         `json:"parent"`
	Lat             float64        `json:"lat"`
	Lon             float64        `json:"lon"`
	ObservationDate time.Time      `json:"observation_date"`
	Features        FeatureVector  `json:"features"`
	Probability     float64        `json:"probability"`
	Interpretation  Interpretation `json:"interpretation"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// NewSnapshot assembles a snapshot for loc from an observation and its probability.
func NewSnapshot(loc Location, obs Observation, probability float64, generatedAt time.Time) PredictionSnapshot {
	return PredictionSnapshot{
		Slug:            loc.Slug,
		Name:            loc.Name,
		Group:           loc.Group,
		Parent:          loc.Parent,
		Lat:             loc.Lat,
		Lon:             loc.Lon,
		ObservationDate: obs.Date,
		Features:        obs.Features,
		Probability:     probability,
		Interpretation:  Interpret(probability),
		GeneratedAt:     generatedAt.UTC(),
	}
}
