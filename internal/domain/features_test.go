package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validValues() [8]float64 {
	return [8]float64{12.4, 23.1, 31.8, 84.2, 1.9, 245.0, 100.7, 4.6}
}

func TestNewFeatureVector_Valid(t *testing.T) {
	fv, err := NewFeatureVector(validValues())
	require.NoError(t, err)
	assert.Equal(t, validValues(), fv.Values())
	assert.Equal(t, 12.4, fv.Precipitation)
	assert.Equal(t, 4.6, fv.SolarRadiation)
}

func TestNewFeatureVector_RejectsSentinel(t *testing.T) {
	for i := range FeatureNames {
		values := validValues()
		values[i] = Sentinel

		_, err := NewFeatureVector(values)
		require.Error(t, err, "feature %s", FeatureNames[i])
		assert.ErrorIs(t, err, ErrInvalidFeatures)
		assert.Contains(t, err.Error(), FeatureNames[i])
	}
}

func TestNewFeatureVector_RejectsNonFinite(t *testing.T) {
	values := validValues()
	values[3] = math.NaN()
	_, err := NewFeatureVector(values)
	assert.ErrorIs(t, err, ErrInvalidFeatures)

	values = validValues()
	values[0] = math.Inf(1)
	_, err = NewFeatureVector(values)
	assert.ErrorIs(t, err, ErrInvalidFeatures)
}

func TestFeatureVectorFromMap(t *testing.T) {
	fv, err := NewFeatureVector(validValues())
	require.NoError(t, err)

	m := fv.Map()
	m["EXTRA"] = 1
	got, err := FeatureVectorFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, fv, got)
}

func TestFeatureVectorFromMap_Missing(t *testing.T) {
	fv, err := NewFeatureVector(validValues())
	require.NoError(t, err)

	m := fv.Map()
	delete(m, FeatureWindDirection)
	_, err = FeatureVectorFromMap(m)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFeatures)
	assert.Contains(t, err.Error(), FeatureWindDirection)
}

func TestFeatureNamesOrder(t *testing.T) {
	assert.Equal(t, [8]string{
		"PRECTOTCORR", "T2M_MIN", "T2M_MAX", "RH2M",
		"WS2M", "WD2M", "PS", "ALLSKY_SFC_SW_DWN",
	}, FeatureNames)
}
