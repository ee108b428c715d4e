package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/groundwater-hpi/internal/models"
	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
)

const sampleCSV = "\uFEFFS. No., State ,District,Location,Latitude,Longitude,pH,F (mg/L),NO3,As (ppb)\n" +
	"1,Punjab,Bathinda,Talwandi,30.1,74.9,7.8,1.5,50,-\n" +
	",,,,,,,,,\n" +
	"2,Punjab,Mansa,Budhlada,29.9,75.5,8.1\n"

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "1", rows[0]["S. No."])
	assert.Equal(t, "Punjab", rows[0]["State"])
	assert.Equal(t, "-", rows[0]["As (ppb)"])

	_, ok := rows[1]["F (mg/L)"]
	assert.False(t, ok, "short records leave trailing columns absent")
	assert.Equal(t, "8.1", rows[1]["pH"])
}

func TestReadRows_Dispatch(t *testing.T) {
	rows, err := ReadRows("export.CSV", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = ReadRows("export.pdf", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadCSV_Empty(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCSVEndToEnd(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	p, err := NewPipeline(nil, nil, Options{RequireCoordinates: true})
	require.NoError(t, err)
	report, err := p.Run(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, report.Samples, 1)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, SkipNoHPI, report.Skipped[0].Reason)
	assert.Equal(t, "Budhlada", report.Skipped[0].Location)

	s := report.Samples[0]
	require.NotNil(t, s.Indices.HPI)
	assert.Equal(t, 149.155, *s.Indices.HPI)
	assert.Equal(t, quality.CategoryModerate, s.Category)
}

func TestWriteResultsCSV(t *testing.T) {
	sample := models.Sample{
		SampleID:     "W-1",
		State:        "Kerala",
		Village:      "Aluva",
		Latitude:     10.1,
		Longitude:    76.35,
		WaterQuality: quality.WaterQuality{Fluoride: quality.Float(0.8)},
		Metals:       quality.Metals{Lead: quality.Float(0.002)},
		Indices:      models.Indices{HPI: quality.Float(80), MI: 0.2, CD: 0.2},
		Category:     quality.CategorySafe,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, []models.Sample{sample}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	header := records[0]
	row := records[1]
	require.Len(t, row, len(header))

	col := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("column %q not found", name)
		return ""
	}
	assert.Equal(t, "1", col("S. No."))
	assert.Equal(t, "W-1", col("Sample ID"))
	assert.Equal(t, "0.8", col("F (mg/L)"))
	assert.Equal(t, "-", col("NO3 (mg/L)"))
	assert.Equal(t, "0.002", col("Pb metal (mg/L)"))
	assert.Equal(t, "80", col("HPI"))
	assert.Equal(t, "safe", col("Category"))
	assert.Equal(t, "", col("Year"))
}

func TestWriteResultsXLSX_ReadsBack(t *testing.T) {
	year := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []models.Sample{{
		SampleID:     "X-9",
		Latitude:     22.5,
		Longitude:    88.3,
		SamplingDate: &year,
		WaterQuality: quality.WaterQuality{Nitrate: quality.Float(30)},
		Indices:      models.Indices{HPI: quality.Float(66.667)},
		Category:     quality.CategorySafe,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteResultsXLSX(&buf, samples))

	rows, err := ReadXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "X-9", rows[0]["Sample ID"])
	assert.Equal(t, "2021", rows[0]["Year"])
	assert.Equal(t, "66.667", rows[0]["HPI"])
}

func TestFetchExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/exports/missing.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	body, err := FetchExport(context.Background(), srv.Client(), srv.URL+"/exports/latest.csv")
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(body))

	_, err = FetchExport(context.Background(), srv.Client(), srv.URL+"/exports/missing.csv")
	assert.Error(t, err)

	assert.Equal(t, "latest.csv", ExportName(srv.URL+"/exports/latest.csv?token=abc"))
}
