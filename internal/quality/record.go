package quality

// Canonical water quality parameter names. Values are mg/L except pH.
const (
	ParamPH            = "pH"
	ParamTDS           = "tds"
	ParamFluoride      = "fluoride"
	ParamNitrate       = "nitrate"
	ParamChloride      = "chloride"
	ParamSulfate       = "sulfate"
	ParamSodium        = "sodium"
	ParamIron          = "iron"
	ParamArsenic       = "arsenic"
	ParamUranium       = "uranium"
	ParamCalcium       = "calcium"
	ParamMagnesium     = "magnesium"
	ParamPotassium     = "potassium"
	ParamTotalHardness = "totalHardness"
	ParamBicarbonate   = "bicarbonate"
	ParamPhosphate     = "phosphate"
)

// Canonical heavy metal names. Values are mg/L.
const (
	MetalLead     = "lead"
	MetalCadmium  = "cadmium"
	MetalArsenic  = "arsenic"
	MetalChromium = "chromium"
	MetalMercury  = "mercury"
	MetalUranium  = "uranium"
	MetalIron     = "iron"
)

// WaterQuality holds the canonical physico-chemical readings of a sample.
// A nil field means no reading.
type WaterQuality struct {
	PH            *float64 `json:"pH"`
	TDS           *float64 `json:"tds"`
	Fluoride      *float64 `json:"fluoride"`
	Nitrate       *float64 `json:"nitrate"`
	Chloride      *float64 `json:"chloride"`
	Sulfate       *float64 `json:"sulfate"`
	Sodium        *float64 `json:"sodium"`
	Iron          *float64 `json:"iron"`
	Arsenic       *float64 `json:"arsenic"`
	Uranium       *float64 `json:"uranium"`
	Calcium       *float64 `json:"calcium"`
	Magnesium     *float64 `json:"magnesium"`
	Potassium     *float64 `json:"potassium"`
	TotalHardness *float64 `json:"totalHardness"`
	Bicarbonate   *float64 `json:"bicarbonate"`
	Phosphate     *float64 `json:"phosphate"`
}

// Metals holds the canonical heavy metal concentrations of a sample.
type Metals struct {
	Lead     *float64 `json:"lead"`
	Cadmium  *float64 `json:"cadmium"`
	Arsenic  *float64 `json:"arsenic"`
	Chromium *float64 `json:"chromium"`
	Mercury  *float64 `json:"mercury"`
	Uranium  *float64 `json:"uranium"`
	Iron     *float64 `json:"iron"`
}

// CanonicalRecord is the unit-consistent input of the Calculator.
type CanonicalRecord struct {
	WaterQuality WaterQuality `json:"waterQuality"`
	Metals       Metals       `json:"metals"`
}

// WaterQualityParams lists the canonical parameter names in schema order.
var WaterQualityParams = []string{
	ParamPH, ParamTDS, ParamFluoride, ParamNitrate, ParamChloride, ParamSulfate,
	ParamSodium, ParamIron, ParamArsenic, ParamUranium, ParamCalcium, ParamMagnesium,
	ParamPotassium, ParamTotalHardness, ParamBicarbonate, ParamPhosphate,
}

// MetalNames lists the canonical metal names in schema order.
var MetalNames = []string{
	MetalLead, MetalCadmium, MetalArsenic, MetalChromium, MetalMercury, MetalUranium, MetalIron,
}

// Field returns a pointer to the slot holding the named parameter, or nil
// when the name is not a canonical parameter.
func (w *WaterQuality) Field(name string) **float64 {
	switch name {
	case ParamPH:
		return &w.PH
	case ParamTDS:
		return &w.TDS
	case ParamFluoride:
		return &w.Fluoride
	case ParamNitrate:
		return &w.Nitrate
	case ParamChloride:
		return &w.Chloride
	case ParamSulfate:
		return &w.Sulfate
	case ParamSodium:
		return &w.Sodium
	case ParamIron:
		return &w.Iron
	case ParamArsenic:
		return &w.Arsenic
	case ParamUranium:
		return &w.Uranium
	case ParamCalcium:
		return &w.Calcium
	case ParamMagnesium:
		return &w.Magnesium
	case ParamPotassium:
		return &w.Potassium
	case ParamTotalHardness:
		return &w.TotalHardness
	case ParamBicarbonate:
		return &w.Bicarbonate
	case ParamPhosphate:
		return &w.Phosphate
	}
	return nil
}

// Get returns the reading for the named parameter (nil when absent or unknown).
func (w WaterQuality) Get(name string) *float64 {
	if slot := w.Field(name); slot != nil {
		return *slot
	}
	return nil
}

// Field returns a pointer to the slot holding the named metal, or nil when
// the name is not a canonical metal.
func (m *Metals) Field(name string) **float64 {
	switch name {
	case MetalLead:
		return &m.Lead
	case MetalCadmium:
		return &m.Cadmium
	case MetalArsenic:
		return &m.Arsenic
	case MetalChromium:
		return &m.Chromium
	case MetalMercury:
		return &m.Mercury
	case MetalUranium:
		return &m.Uranium
	case MetalIron:
		return &m.Iron
	}
	return nil
}

// Get returns the concentration for the named metal (nil when absent or unknown).
func (m Metals) Get(name string) *float64 {
	if slot := m.Field(name); slot != nil {
		return *slot
	}
	return nil
}

// Float returns a pointer to a copy of v.
func Float(v float64) *float64 {
	return &v
}
