package quality

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RawRow maps source column labels to cell text. A missing key and the
// empty string both mean "no reading".
type RawRow map[string]string

// ErrMalformedRow is returned when a raw row is not a mapping at all.
var ErrMalformedRow = errors.New("raw row must be a JSON object")

// Section names the part of the canonical record an alias writes to.
type Section int

const (
	SectionWaterQuality Section = iota
	SectionMetals
)

// Unit multipliers into mg/L (or TDS mg/L for conductivity).
const (
	PPBToMgL       = 0.001
	ConductanceTDS = 0.64
)

// Column is one candidate source column and the factor converting it to
// canonical units.
type Column struct {
	Name       string
	Multiplier float64
}

// FieldAlias lists, in priority order, the columns that may supply one
// canonical field. The first column holding a reading wins.
type FieldAlias struct {
	Section Section
	Field   string
	Columns []Column
}

func mgl(name string) Column { return Column{Name: name, Multiplier: 1} }
func ppb(name string) Column { return Column{Name: name, Multiplier: PPBToMgL} }

// DefaultAliases covers the CGWB/state lab export dialects seen so far.
var DefaultAliases = []FieldAlias{
	{SectionWaterQuality, ParamPH, []Column{mgl("pH"), mgl("PH")}},
	{SectionWaterQuality, ParamTDS, []Column{
		{Name: "EC (µS/cm at at 25 °C)", Multiplier: ConductanceTDS},
		{Name: "EC (µS/cm at 25 °C)", Multiplier: ConductanceTDS},
		{Name: "EC (µS/cm)", Multiplier: ConductanceTDS},
		mgl("TDS (mg/L)"),
		mgl("TDS"),
	}},
	{SectionWaterQuality, ParamFluoride, []Column{mgl("F (mg/L)"), mgl("F")}},
	{SectionWaterQuality, ParamNitrate, []Column{mgl("NO3"), mgl("NO3 (mg/L)")}},
	{SectionWaterQuality, ParamChloride, []Column{mgl("Cl (mg/L)"), mgl("Cl")}},
	{SectionWaterQuality, ParamSulfate, []Column{mgl("SO4"), mgl("SO4 (mg/L)")}},
	{SectionWaterQuality, ParamSodium, []Column{mgl("Na (mg/L)"), mgl("Na")}},
	{SectionWaterQuality, ParamIron, []Column{mgl("Fe (ppm)"), mgl("Fe (mg/L)")}},
	{SectionWaterQuality, ParamArsenic, []Column{ppb("As (ppb)"), mgl("As (mg/L)")}},
	{SectionWaterQuality, ParamUranium, []Column{ppb("U (ppb)"), mgl("U (mg/L)")}},
	{SectionWaterQuality, ParamCalcium, []Column{mgl("Ca (mg/L)"), mgl("Ca")}},
	{SectionWaterQuality, ParamMagnesium, []Column{mgl("Mg (mg/L)"), mgl("Mg")}},
	{SectionWaterQuality, ParamPotassium, []Column{mgl("K (mg/L)"), mgl("K")}},
	{SectionWaterQuality, ParamTotalHardness, []Column{mgl("Total Hardness"), mgl("TH (mg/L)")}},
	{SectionWaterQuality, ParamBicarbonate, []Column{mgl("HCO3"), mgl("HCO3 (mg/L)")}},
	{SectionWaterQuality, ParamPhosphate, []Column{mgl("PO4"), mgl("PO4 (mg/L)")}},

	{SectionMetals, MetalLead, []Column{ppb("Pb (ppb)"), mgl("Pb (mg/L)")}},
	{SectionMetals, MetalCadmium, []Column{ppb("Cd (ppb)"), mgl("Cd (mg/L)")}},
	{SectionMetals, MetalArsenic, []Column{ppb("As (ppb)"), mgl("As (mg/L)")}},
	{SectionMetals, MetalChromium, []Column{ppb("Cr (ppb)"), mgl("Cr (mg/L)")}},
	{SectionMetals, MetalMercury, []Column{ppb("Hg (ppb)"), mgl("Hg (mg/L)")}},
	{SectionMetals, MetalUranium, []Column{ppb("U (ppb)"), mgl("U (mg/L)")}},
	{SectionMetals, MetalIron, []Column{ppb("Fe (ppb)"), mgl("Fe (mg/L)")}},
}

var (
	latitudeColumns  = []string{"Latitude", "LAT", "latitude", "Lat", "LATITUDE"}
	longitudeColumns = []string{"Longitude", "LONG", "longitude", "Lon", "LON", "LNG", "Lng", "LONGITUDE"}
)

// Normalizer maps raw rows onto the canonical schema. It is immutable and
// safe for concurrent use.
type Normalizer struct {
	aliases []FieldAlias
}

// NewNormalizer validates an alias table. Unknown canonical fields are
// rejected so a typo in a dialect never silently drops a column.
func NewNormalizer(aliases []FieldAlias) (*Normalizer, error) {
	var rec CanonicalRecord
	for _, a := range aliases {
		if rec.slot(a.Section, a.Field) == nil {
			return nil, fmt.Errorf("alias for unknown field %q", a.Field)
		}
		if len(a.Columns) == 0 {
			return nil, fmt.Errorf("alias for %q has no columns", a.Field)
		}
	}
	return &Normalizer{aliases: append([]FieldAlias(nil), aliases...)}, nil
}

// DefaultNormalizer uses DefaultAliases.
func DefaultNormalizer() *Normalizer {
	n, err := NewNormalizer(DefaultAliases)
	if err != nil {
		panic(err)
	}
	return n
}

func (r *CanonicalRecord) slot(section Section, field string) **float64 {
	switch section {
	case SectionWaterQuality:
		return r.WaterQuality.Field(field)
	case SectionMetals:
		return r.Metals.Field(field)
	}
	return nil
}

// Normalize converts a raw row into a canonical record. Fields no column can
// supply stay nil; a row with nothing usable yields an all-nil record.
func (n *Normalizer) Normalize(row RawRow) CanonicalRecord {
	var rec CanonicalRecord
	for _, a := range n.aliases {
		slot := rec.slot(a.Section, a.Field)
		if *slot != nil {
			continue
		}
		for _, col := range a.Columns {
			if v := ParseNumeric(row[col.Name], col.Multiplier); v != nil {
				*slot = v
				break
			}
		}
	}
	return rec
}

// NormalizePayload fills a canonical record from an already structured
// payload of the form {"waterQuality": {...}, "metals": {...}}. Only
// canonical field names are read.
func (n *Normalizer) NormalizePayload(payload map[string]any) CanonicalRecord {
	var rec CanonicalRecord
	if wq, ok := payload["waterQuality"].(map[string]any); ok {
		for _, name := range WaterQualityParams {
			*rec.WaterQuality.Field(name) = ParseAny(wq[name], 1)
		}
	}
	if m, ok := payload["metals"].(map[string]any); ok {
		for _, name := range MetalNames {
			*rec.Metals.Field(name) = ParseAny(m[name], 1)
		}
	}
	return rec
}

// ResolveCoordinates reads latitude and longitude from the first matching
// column variant. Unresolved values are 0; callers must treat a zero
// coordinate as missing (see HasCoordinates).
func ResolveCoordinates(row RawRow) (lat, lon float64) {
	return lookupCoordinate(row, latitudeColumns), lookupCoordinate(row, longitudeColumns)
}

func lookupCoordinate(row RawRow, names []string) float64 {
	for _, name := range names {
		if v := ParseNumeric(row[name], 1); v != nil {
			return *v
		}
	}
	for key, raw := range row {
		canon := strings.ToLower(strings.Join(strings.Fields(key), ""))
		for _, name := range names {
			if canon == strings.ToLower(name) {
				if v := ParseNumeric(raw, 1); v != nil {
					return *v
				}
			}
		}
	}
	return 0
}

// HasCoordinates reports whether a resolved location is usable for mapping.
func HasCoordinates(lat, lon float64) bool {
	return lat != 0 && lon != 0
}

// DecodeRawRow decodes a JSON object of column labels into a RawRow. Numbers
// keep their literal text; null and nested values become empty cells.
func DecodeRawRow(data []byte) (RawRow, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, ErrMalformedRow
	}

	row := make(RawRow, len(obj))
	for key, v := range obj {
		switch t := v.(type) {
		case string:
			row[key] = t
		case json.Number:
			row[key] = t.String()
		default:
			row[key] = ""
		}
	}
	return row, nil
}
