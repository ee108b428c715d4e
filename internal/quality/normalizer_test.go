package quality

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		multiplier float64
		want       *float64
	}{
		{"placeholder", "-", 1, nil},
		{"empty", "", 1, nil},
		{"blank", "   ", 1, nil},
		{"text", "BDL", 1, nil},
		{"trailing garbage", "12abc", 1, nil},
		{"nan literal", "NaN", 1, nil},
		{"infinity literal", "Inf", 1, nil},
		{"integer", "50", 1, Float(50)},
		{"padded", " 7.2 ", 1, Float(7.2)},
		{"ppb", "10", PPBToMgL, Float(0.01)},
		{"zero", "0", 1, Float(0)},
		{"conductivity", "1200", ConductanceTDS, Float(768)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNumeric(tt.raw, tt.multiplier)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-12)
		})
	}
}

func TestParseAny(t *testing.T) {
	assert.Nil(t, ParseAny(nil, 1))
	assert.Nil(t, ParseAny(true, 1))
	assert.Nil(t, ParseAny(map[string]any{}, 1))
	assert.Equal(t, Float(2.5), ParseAny(2.5, 1))
	assert.Equal(t, Float(3), ParseAny(3, 1))
	assert.Equal(t, Float(0.4), ParseAny("0.4", 1))
}

func TestNormalize_ArsenicPPB(t *testing.T) {
	n := DefaultNormalizer()

	rec := n.Normalize(RawRow{"As (ppb)": "10"})
	require.NotNil(t, rec.WaterQuality.Arsenic)
	assert.Equal(t, 0.01, *rec.WaterQuality.Arsenic)
	require.NotNil(t, rec.Metals.Arsenic)
	assert.Equal(t, 0.01, *rec.Metals.Arsenic)

	rec = n.Normalize(RawRow{"As (ppb)": "-"})
	assert.Nil(t, rec.WaterQuality.Arsenic)
	assert.Nil(t, rec.Metals.Arsenic)
}

func TestNormalize_MetalFallsBackToMgL(t *testing.T) {
	n := DefaultNormalizer()

	rec := n.Normalize(RawRow{"Pb (ppb)": "-", "Pb (mg/L)": "0.02"})
	require.NotNil(t, rec.Metals.Lead)
	assert.Equal(t, 0.02, *rec.Metals.Lead)

	// ppb wins when both are present; the two are never combined
	rec = n.Normalize(RawRow{"Cd (ppb)": "5", "Cd (mg/L)": "0.9"})
	require.NotNil(t, rec.Metals.Cadmium)
	assert.InDelta(t, 0.005, *rec.Metals.Cadmium, 1e-12)
}

func TestNormalize_ConductivityToTDS(t *testing.T) {
	rec := DefaultNormalizer().Normalize(RawRow{"EC (µS/cm at at 25 °C)": "1000"})

	require.NotNil(t, rec.WaterQuality.TDS)
	assert.InDelta(t, 640.0, *rec.WaterQuality.TDS, 1e-9)
}

func TestNormalize_EmptyRowIsAllNil(t *testing.T) {
	rec := DefaultNormalizer().Normalize(RawRow{"Location": "Somewhere"})

	assert.Equal(t, CanonicalRecord{}, rec)
}

func TestNormalize_EndToEndScenario(t *testing.T) {
	row := RawRow{
		"pH":       "7.2",
		"F (mg/L)": "1.5",
		"NO3":      "50",
		"As (ppb)": "-",
		"U (ppb)":  "-",
		"Fe (ppm)": "-",
	}

	rec := DefaultNormalizer().Normalize(row)

	assert.Equal(t, Float(7.2), rec.WaterQuality.PH)
	assert.Equal(t, Float(1.5), rec.WaterQuality.Fluoride)
	assert.Equal(t, Float(50), rec.WaterQuality.Nitrate)
	assert.Nil(t, rec.WaterQuality.Arsenic)
	assert.Nil(t, rec.WaterQuality.Uranium)
	assert.Nil(t, rec.WaterQuality.Iron)

	res := NewCalculator(nil).Compute(rec)
	require.NotNil(t, res.HPI)
	assert.Equal(t, 149.155, *res.HPI)
	assert.Equal(t, CategoryModerate, res.Category)
}

func TestNormalizePayload(t *testing.T) {
	payload := map[string]any{
		"waterQuality": map[string]any{"fluoride": 1.2, "nitrate": "40", "unknown": 3.0, "pH": nil},
		"metals":       map[string]any{"lead": 0.02},
	}

	rec := DefaultNormalizer().NormalizePayload(payload)

	assert.Equal(t, Float(1.2), rec.WaterQuality.Fluoride)
	assert.Equal(t, Float(40), rec.WaterQuality.Nitrate)
	assert.Nil(t, rec.WaterQuality.PH)
	assert.Equal(t, Float(0.02), rec.Metals.Lead)
	assert.Nil(t, rec.Metals.Cadmium)
}

func TestNewNormalizer_RejectsUnknownField(t *testing.T) {
	_, err := NewNormalizer([]FieldAlias{{SectionMetals, "zinc", []Column{mgl("Zn")}}})
	assert.Error(t, err)
}

func TestResolveCoordinates(t *testing.T) {
	lat, lon := ResolveCoordinates(RawRow{"Latitude": "26.85", "Longitude": "80.95"})
	assert.Equal(t, 26.85, lat)
	assert.Equal(t, 80.95, lon)
	assert.True(t, HasCoordinates(lat, lon))

	lat, lon = ResolveCoordinates(RawRow{"LAT": "12.5", "LONG": "77.1"})
	assert.Equal(t, 12.5, lat)
	assert.Equal(t, 77.1, lon)

	lat, lon = ResolveCoordinates(RawRow{" latitude ": "10", "LONGITUDE": "76"})
	assert.Equal(t, 10.0, lat)
	assert.Equal(t, 76.0, lon)

	lat, lon = ResolveCoordinates(RawRow{"Latitude": "-", "Longitude": "n/a"})
	assert.Equal(t, 0.0, lat)
	assert.Equal(t, 0.0, lon)
	assert.False(t, HasCoordinates(lat, lon))
}

func TestDecodeRawRow(t *testing.T) {
	row, err := DecodeRawRow([]byte(`{"As (ppb)": 10, "pH": "7.1", "Pb (ppb)": null}`))
	require.NoError(t, err)
	assert.Equal(t, "10", row["As (ppb)"])
	assert.Equal(t, "7.1", row["pH"])
	assert.Equal(t, "", row["Pb (ppb)"])

	for _, body := range []string{`[1,2]`, `"text"`, `null`, `{`} {
		_, err := DecodeRawRow([]byte(body))
		assert.True(t, errors.Is(err, ErrMalformedRow), body)
	}
}
