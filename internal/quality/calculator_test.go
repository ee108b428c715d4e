package quality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsSumToHundred(t *testing.T) {
	total := 0.0
	for _, w := range DefaultStandards().HPIWeights() {
		assert.Greater(t, w.Weight, 0.0, w.Name)
		total += w.Weight
	}
	assert.InDelta(t, 100.0, total, 1e-6)
}

func TestWeightsFollowInverseLimit(t *testing.T) {
	std, err := NewStandards([]Limit{
		{Name: ParamFluoride, Value: 1},
		{Name: ParamNitrate, Value: 4},
	}, DefaultMetalLimits, StandardsOptions{})
	require.NoError(t, err)

	weights := std.HPIWeights()
	require.Len(t, weights, 2)
	assert.InDelta(t, 80.0, weights[0].Weight, 1e-9)
	assert.InDelta(t, 20.0, weights[1].Weight, 1e-9)
}

func TestCompute_EmptyRecord(t *testing.T) {
	res := NewCalculator(nil).Compute(CanonicalRecord{})

	assert.Nil(t, res.HPI)
	assert.Equal(t, 0.0, res.MI)
	assert.Equal(t, 0.0, res.CD)
	assert.Equal(t, CategorySafe, res.Category)
	assert.True(t, res.Indeterminate())
	assert.True(t, res.NoMeasurements())
}

func TestCompute_SingleParameterAtLimit(t *testing.T) {
	rec := CanonicalRecord{WaterQuality: WaterQuality{Arsenic: Float(0.01)}}

	res := NewCalculator(nil).Compute(rec)

	require.NotNil(t, res.HPI)
	assert.Equal(t, 100.0, *res.HPI)
	assert.Equal(t, CategoryModerate, res.Category)
}

func TestCompute_ZeroMetalIsExcluded(t *testing.T) {
	rec := CanonicalRecord{Metals: Metals{Lead: Float(0)}}

	res := NewCalculator(nil).Compute(rec)

	assert.Equal(t, 0.0, res.MI)
	assert.Equal(t, 0.0, res.CD)
}

func TestCompute_ZeroMetalIncludedWhenConfigured(t *testing.T) {
	std, err := NewStandards(DefaultHPILimits, DefaultMetalLimits, StandardsOptions{
		ZeroMetalPolicy: ZeroMetalInclude,
	})
	require.NoError(t, err)
	rec := CanonicalRecord{Metals: Metals{Lead: Float(0), Cadmium: Float(0.006)}}

	res := NewCalculator(std).Compute(rec)

	// (0 + 2) / 2 and 0 + 2
	assert.Equal(t, 1.0, res.MI)
	assert.Equal(t, 2.0, res.CD)
}

func TestCompute_MetalIndices(t *testing.T) {
	rec := CanonicalRecord{Metals: Metals{
		Lead:    Float(0.02),
		Cadmium: Float(0.003),
		Iron:    Float(0.15),
		Mercury: Float(0),
	}}

	res := NewCalculator(nil).Compute(rec)

	assert.Equal(t, 1.167, res.MI)
	assert.Equal(t, 3.5, res.CD)
	// metals never influence the category
	assert.Nil(t, res.HPI)
	assert.Equal(t, CategorySafe, res.Category)
	assert.False(t, res.NoMeasurements())
}

func TestCompute_AllHPIParameters(t *testing.T) {
	rec := CanonicalRecord{WaterQuality: WaterQuality{
		Arsenic:  Float(0.02),
		Uranium:  Float(0.03),
		Iron:     Float(0.6),
		Fluoride: Float(1.5),
		Nitrate:  Float(50),
	}}

	res := NewCalculator(nil).Compute(rec)

	require.NotNil(t, res.HPI)
	assert.Equal(t, 175.413, *res.HPI)
	assert.Equal(t, CategoryModerate, res.Category)
}

func TestCompute_NonFiniteValuesAreSkipped(t *testing.T) {
	nan := math.NaN()
	rec := CanonicalRecord{
		WaterQuality: WaterQuality{Arsenic: &nan, Fluoride: Float(0.5)},
		Metals:       Metals{Lead: &nan},
	}

	res := NewCalculator(nil).Compute(rec)

	require.NotNil(t, res.HPI)
	assert.Equal(t, 50.0, *res.HPI)
	assert.Equal(t, 0.0, res.MI)
}

func TestCompute_Idempotent(t *testing.T) {
	rec := CanonicalRecord{
		WaterQuality: WaterQuality{Arsenic: Float(0.013), Nitrate: Float(61.7), Iron: Float(0.41)},
		Metals:       Metals{Lead: Float(0.004), Chromium: Float(0.07)},
	}
	calc := NewCalculator(nil)

	first := calc.Compute(rec)
	second := calc.Compute(rec)

	require.NotNil(t, first.HPI)
	require.NotNil(t, second.HPI)
	assert.Equal(t, *first.HPI, *second.HPI)
	assert.Equal(t, first.MI, second.MI)
	assert.Equal(t, first.CD, second.CD)
	assert.Equal(t, first.Category, second.Category)
}

func TestHPI_MonotonicInSingleParameter(t *testing.T) {
	calc := NewCalculator(nil)
	prevHPI := -1.0
	prevSeverity := 0
	for _, v := range []float64{0.1, 0.5, 0.9, 1.0, 1.5, 1.99, 2.0, 3.5} {
		res := calc.Compute(CanonicalRecord{WaterQuality: WaterQuality{Fluoride: Float(v)}})
		require.NotNil(t, res.HPI)
		assert.Greater(t, *res.HPI, prevHPI, "fluoride=%v", v)
		assert.GreaterOrEqual(t, res.Category.Severity(), prevSeverity, "fluoride=%v", v)
		prevHPI = *res.HPI
		prevSeverity = res.Category.Severity()
	}
}

func TestClassifyHPI_Boundaries(t *testing.T) {
	tests := []struct {
		hpi  *float64
		want Category
	}{
		{nil, CategorySafe},
		{Float(0), CategorySafe},
		{Float(99.999), CategorySafe},
		{Float(100.000), CategoryModerate},
		{Float(199.999), CategoryModerate},
		{Float(200.000), CategoryUnsafe},
		{Float(1250), CategoryUnsafe},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyHPI(tt.hpi))
	}
}

func TestClassify_IndeterminateCategory(t *testing.T) {
	std, err := NewStandards(DefaultHPILimits, DefaultMetalLimits, StandardsOptions{
		IndeterminateCategory: CategoryIndeterminate,
	})
	require.NoError(t, err)
	calc := NewCalculator(std)

	assert.Equal(t, CategoryIndeterminate, calc.Compute(CanonicalRecord{}).Category)
	assert.Equal(t, CategoryUnsafe, calc.Classify(Float(250)))
}
