package domain

import (
	"fmt"
	"math"
	"time"
)

// Sentinel is the upstream fill value for measurements that are not yet available.
const Sentinel = -999.0

// Upstream parameter names, in classifier order.
const (
	FeaturePrecipitation   = "PRECTOTCORR"
	FeatureTempMin         = "T2M_MIN"
	FeatureTempMax         = "T2M_MAX"
	FeatureHumidity        = "RH2M"
	FeatureWindSpeed       = "WS2M"
	FeatureWindDirection   = "WD2M"
	FeatureSurfacePressure = "PS"
	FeatureSolarRadiation  = "ALLSKY_SFC_SW_DWN"
)

// FeatureNames lists the eight classifier inputs in their fixed order.
var FeatureNames = [8]string{
	FeaturePrecipitation,
	FeatureTempMin,
	FeatureTempMax,
	FeatureHumidity,
	FeatureWindSpeed,
	FeatureWindDirection,
	FeatureSurfacePressure,
	FeatureSolarRadiation,
}

// FeatureVector holds one day of measurements for one location. Construct it
// with NewFeatureVector or FeatureVectorFromMap so the no-sentinel invariant holds.
type FeatureVector struct {
	Precipitation   float64 `json:"PRECTOTCORR"`
	TempMin         float64 `json:"T2M_MIN"`
	TempMax         float64 `json:"T2M_MAX"`
	Humidity        float64 `json:"RH2M"`
	WindSpeed       float64 `json:"WS2M"`
	WindDirection   float64 `json:"WD2M"`
	SurfacePressure float64 `json:"PS"`
	SolarRadiation  float64 `json:"ALLSKY_SFC_SW_DWN"`
}

// NewFeatureVector builds a vector from values in FeatureNames order.
func NewFeatureVector(values [8]float64) (FeatureVector, error) {
	fv := FeatureVector{
		Precipitation:   values[0],
		TempMin:         values[1],
		TempMax:         values[2],
		Humidity:        values[3],
		WindSpeed:       values[4],
		WindDirection:   values[5],
		SurfacePressure: values[6],
		SolarRadiation:  values[7],
	}
	if err := fv.Validate(); err != nil {
		return FeatureVector{}, err
	}
	return fv, nil
}

// FeatureVectorFromMap builds a vector from named values. Every feature must
// be present; extra keys are ignored.
func FeatureVectorFromMap(m map[string]float64) (FeatureVector, error) {
	var values [8]float64
	for i, name := range FeatureNames {
		v, ok := m[name]
		if !ok {
			return FeatureVector{}, fmt.Errorf("%w: missing %s", ErrInvalidFeatures, name)
		}
		values[i] = v
	}
	return NewFeatureVector(values)
}

// Values returns the measurements in FeatureNames order.
func (fv FeatureVector) Values() [8]float64 {
	return [8]float64{
		fv.Precipitation,
		fv.TempMin,
		fv.TempMax,
		fv.Humidity,
		fv.WindSpeed,
		fv.WindDirection,
		fv.SurfacePressure,
		fv.SolarRadiation,
	}
}

// Map returns the measurements keyed by upstream parameter name.
func (fv FeatureVector) Map() map[string]float64 {
	values := fv.Values()
	m := make(map[string]float64, len(values))
	for i, name := range FeatureNames {
		m[name] = values[i]
	}
	return m
}

// Validate rejects fill values and non-finite numbers.
func (fv FeatureVector) Validate() error {
	for i, v := range fv.Values() {
		if v == Sentinel {
			return fmt.Errorf("%w: %s is the fill value", ErrInvalidFeatures, FeatureNames[i])
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidFeatures, FeatureNames[i])
		}
	}
	return nil
}

// Observation is the most recent fully valid day found in a lookback window.
type Observation struct {
	Date     time.Time
	Features FeatureVector
}
