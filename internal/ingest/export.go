package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/02loveslollipop/groundwater-hpi/internal/models"
	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
)

const resultsSheet = "Results"

var (
	waterQualityHeaders = map[string]string{
		quality.ParamPH:            "pH",
		quality.ParamTDS:           "TDS (mg/L)",
		quality.ParamFluoride:      "F (mg/L)",
		quality.ParamNitrate:       "NO3 (mg/L)",
		quality.ParamChloride:      "Cl (mg/L)",
		quality.ParamSulfate:       "SO4 (mg/L)",
		quality.ParamSodium:        "Na (mg/L)",
		quality.ParamIron:          "Fe (mg/L)",
		quality.ParamArsenic:       "As (mg/L)",
		quality.ParamUranium:       "U (mg/L)",
		quality.ParamCalcium:       "Ca (mg/L)",
		quality.ParamMagnesium:     "Mg (mg/L)",
		quality.ParamPotassium:     "K (mg/L)",
		quality.ParamTotalHardness: "Total Hardness (mg/L)",
		quality.ParamBicarbonate:   "HCO3 (mg/L)",
		quality.ParamPhosphate:     "PO4 (mg/L)",
	}
	metalHeaders = map[string]string{
		quality.MetalLead:     "Pb metal (mg/L)",
		quality.MetalCadmium:  "Cd metal (mg/L)",
		quality.MetalArsenic:  "As metal (mg/L)",
		quality.MetalChromium: "Cr metal (mg/L)",
		quality.MetalMercury:  "Hg metal (mg/L)",
		quality.MetalUranium:  "U metal (mg/L)",
		quality.MetalIron:     "Fe metal (mg/L)",
	}
)

// ResultHeader returns the column labels of the results report.
func ResultHeader() []string {
	header := []string{"S. No.", "Sample ID", "State", "District", "Block", "Location", "Latitude", "Longitude", "Year"}
	for _, p := range quality.WaterQualityParams {
		header = append(header, waterQualityHeaders[p])
	}
	for _, m := range quality.MetalNames {
		header = append(header, metalHeaders[m])
	}
	return append(header, "HPI", "MI", "CD", "Category")
}

// ResultRecord renders one sample as a report row. Missing readings are "-".
func ResultRecord(index int, s models.Sample) []string {
	year := ""
	if s.SamplingDate != nil {
		year = strconv.Itoa(s.SamplingDate.Year())
	}
	rec := []string{
		strconv.Itoa(index + 1),
		s.SampleID,
		s.State,
		s.District,
		s.Block,
		s.Village,
		formatFloat(s.Latitude),
		formatFloat(s.Longitude),
		year,
	}
	for _, p := range quality.WaterQualityParams {
		rec = append(rec, FormatReading(s.WaterQuality.Get(p)))
	}
	for _, m := range quality.MetalNames {
		rec = append(rec, FormatReading(s.Metals.Get(m)))
	}
	return append(rec,
		FormatReading(s.Indices.HPI),
		formatFloat(s.Indices.MI),
		formatFloat(s.Indices.CD),
		string(s.Category),
	)
}

// WriteResultsCSV writes the results report as CSV.
func WriteResultsCSV(w io.Writer, samples []models.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultHeader()); err != nil {
		return err
	}
	for i, s := range samples {
		if err := cw.Write(ResultRecord(i, s)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResultsXLSX writes the results report as a single-sheet workbook.
func WriteResultsXLSX(w io.Writer, samples []models.Sample) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := ResultHeader()
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(resultsSheet, "A1", last, style); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, s := range samples {
		if err := setRow(f, i+2, ResultRecord(i, s)); err != nil {
			return err
		}
	}

	if err := f.SetPanes(resultsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	_, err = f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(resultsSheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// FormatReading renders a nullable reading; nil becomes "-".
func FormatReading(v *float64) string {
	if v == nil {
		return quality.NoReading
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
