// Package classifier provides domain.Classifier implementations.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// ModelFile is the serialized form of a standardized logistic regression:
// each feature is scaled as (x - mean) / scale before the linear term.
// Keys are upstream feature names.
type ModelFile struct {
	Name         string             `json:"name" yaml:"name"`
	Mean         map[string]float64 `json:"mean" yaml:"mean"`
	Scale        map[string]float64 `json:"scale" yaml:"scale"`
	Coefficients map[string]float64 `json:"coefficients" yaml:"coefficients"`
	Intercept    float64            `json:"intercept" yaml:"intercept"`
}

// Logistic is a local logistic-regression classifier with a standard scaler.
type Logistic struct {
	name      string
	mean      [8]float64
	scale     [8]float64
	coef      [8]float64
	intercept float64
}

// NewLogistic validates a model definition. Every feature needs a mean, a
// non-zero scale and a coefficient.
func NewLogistic(m ModelFile) (*Logistic, error) {
	l := &Logistic{name: m.Name, intercept: m.Intercept}
	for i, name := range domain.FeatureNames {
		mean, ok := m.Mean[name]
		if !ok {
			return nil, fmt.Errorf("model: missing mean for %s", name)
		}
		scale, ok := m.Scale[name]
		if !ok || scale == 0 {
			return nil, fmt.Errorf("model: missing or zero scale for %s", name)
		}
		coef, ok := m.Coefficients[name]
		if !ok {
			return nil, fmt.Errorf("model: missing coefficient for %s", name)
		}
		l.mean[i], l.scale[i], l.coef[i] = mean, scale, coef
	}
	if l.name == "" {
		l.name = "logistic"
	}
	return l, nil
}

// LoadLogistic reads a model file (YAML or JSON, by extension).
func LoadLogistic(path string) (*Logistic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var m ModelFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &m)
	} else {
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	return NewLogistic(m)
}

// Name identifies the loaded model in logs.
func (l *Logistic) Name() string { return l.name }

// Predict returns the positive-class probability.
func (l *Logistic) Predict(_ context.Context, fv domain.FeatureVector) (float64, error) {
	if err := fv.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrClassifier, err)
	}

	z := l.intercept
	for i, x := range fv.Values() {
		z += l.coef[i] * (x - l.mean[i]) / l.scale[i]
	}
	p := 1 / (1 + math.Exp(-z))
	if err := domain.ValidateProbability(p); err != nil {
		return 0, err
	}
	return p, nil
}
