package quality

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Limit is the permissible concentration (mg/L) of one parameter or metal.
type Limit struct {
	Name  string  `yaml:"name" json:"name"`
	Value float64 `yaml:"limit" json:"limit"`
}

// Weight is the normalized HPI weight of one parameter.
type Weight struct {
	Name   string  `json:"name"`
	Limit  float64 `json:"limit"`
	Weight float64 `json:"weight"`
}

// ZeroMetalPolicy decides whether a literal zero metal reading counts
// towards MI and CD.
type ZeroMetalPolicy string

const (
	// ZeroMetalExclude treats a zero reading as "not tested".
	ZeroMetalExclude ZeroMetalPolicy = "exclude"
	// ZeroMetalInclude counts a zero reading as a zero ratio.
	ZeroMetalInclude ZeroMetalPolicy = "include"
)

// BIS drinking water limits used when no standards file is configured.
var (
	DefaultHPILimits = []Limit{
		{Name: ParamArsenic, Value: 0.01},
		{Name: ParamUranium, Value: 0.03},
		{Name: ParamIron, Value: 0.3},
		{Name: ParamFluoride, Value: 1.0},
		{Name: ParamNitrate, Value: 45},
	}

	DefaultMetalLimits = []Limit{
		{Name: MetalLead, Value: 0.01},
		{Name: MetalCadmium, Value: 0.003},
		{Name: MetalArsenic, Value: 0.01},
		{Name: MetalChromium, Value: 0.05},
		{Name: MetalMercury, Value: 0.001},
		{Name: MetalUranium, Value: 0.03},
		{Name: MetalIron, Value: 0.3},
	}
)

var ErrInvalidStandards = errors.New("invalid standards")

// Standards is the immutable set of regulatory tables the Calculator scores
// against. Build it once at startup and share it.
type Standards struct {
	hpi                   []Weight
	metals                []Limit
	zeroMetals            ZeroMetalPolicy
	indeterminateCategory Category
}

// StandardsOptions configures the policy knobs of a Standards value.
type StandardsOptions struct {
	ZeroMetalPolicy       ZeroMetalPolicy
	IndeterminateCategory Category
}

// NewStandards validates the limit tables and derives the HPI weights.
func NewStandards(hpiLimits, metalLimits []Limit, opts StandardsOptions) (*Standards, error) {
	if len(hpiLimits) == 0 {
		return nil, fmt.Errorf("%w: no HPI limits", ErrInvalidStandards)
	}
	if len(metalLimits) == 0 {
		return nil, fmt.Errorf("%w: no metal limits", ErrInvalidStandards)
	}

	var wq WaterQuality
	seen := make(map[string]bool, len(hpiLimits))
	total := 0.0
	for _, l := range hpiLimits {
		if wq.Field(l.Name) == nil {
			return nil, fmt.Errorf("%w: unknown HPI parameter %q", ErrInvalidStandards, l.Name)
		}
		if err := checkLimit(l, seen); err != nil {
			return nil, err
		}
		total += 1 / l.Value
	}

	weights := make([]Weight, 0, len(hpiLimits))
	for _, l := range hpiLimits {
		weights = append(weights, Weight{
			Name:   l.Name,
			Limit:  l.Value,
			Weight: (1 / l.Value) / total * 100,
		})
	}

	var m Metals
	seen = make(map[string]bool, len(metalLimits))
	for _, l := range metalLimits {
		if m.Field(l.Name) == nil {
			return nil, fmt.Errorf("%w: unknown metal %q", ErrInvalidStandards, l.Name)
		}
		if err := checkLimit(l, seen); err != nil {
			return nil, err
		}
	}

	switch opts.ZeroMetalPolicy {
	case "":
		opts.ZeroMetalPolicy = ZeroMetalExclude
	case ZeroMetalExclude, ZeroMetalInclude:
	default:
		return nil, fmt.Errorf("%w: zero metal policy %q", ErrInvalidStandards, opts.ZeroMetalPolicy)
	}

	switch opts.IndeterminateCategory {
	case "":
		opts.IndeterminateCategory = CategorySafe
	case CategorySafe, CategoryIndeterminate:
	default:
		return nil, fmt.Errorf("%w: indeterminate category %q", ErrInvalidStandards, opts.IndeterminateCategory)
	}

	return &Standards{
		hpi:                   weights,
		metals:                append([]Limit(nil), metalLimits...),
		zeroMetals:            opts.ZeroMetalPolicy,
		indeterminateCategory: opts.IndeterminateCategory,
	}, nil
}

func checkLimit(l Limit, seen map[string]bool) error {
	if seen[l.Name] {
		return fmt.Errorf("%w: duplicate entry %q", ErrInvalidStandards, l.Name)
	}
	seen[l.Name] = true
	if !(l.Value > 0) || math.IsInf(l.Value, 0) {
		return fmt.Errorf("%w: limit for %q must be a positive number, got %v", ErrInvalidStandards, l.Name, l.Value)
	}
	return nil
}

// DefaultStandards returns the BIS tables with the historical policies.
func DefaultStandards() *Standards {
	std, err := NewStandards(DefaultHPILimits, DefaultMetalLimits, StandardsOptions{})
	if err != nil {
		panic(err)
	}
	return std
}

// HPIWeights returns the derived HPI weight table in evaluation order.
func (s *Standards) HPIWeights() []Weight {
	return append([]Weight(nil), s.hpi...)
}

// MetalLimits returns the metal limit table in evaluation order.
func (s *Standards) MetalLimits() []Limit {
	return append([]Limit(nil), s.metals...)
}

func (s *Standards) ZeroMetalPolicy() ZeroMetalPolicy { return s.zeroMetals }

func (s *Standards) IndeterminateCategory() Category { return s.indeterminateCategory }

type standardsFile struct {
	HPILimits             []Limit         `yaml:"hpi_limits"`
	MetalLimits           []Limit         `yaml:"metal_limits"`
	ZeroMetalPolicy       ZeroMetalPolicy `yaml:"zero_metal_policy"`
	IndeterminateCategory Category        `yaml:"indeterminate_category"`
}

// ParseStandards builds Standards from a YAML document. Tables omitted from
// the document fall back to the BIS defaults.
func ParseStandards(data []byte) (*Standards, error) {
	var doc standardsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStandards, err)
	}
	if len(doc.HPILimits) == 0 {
		doc.HPILimits = DefaultHPILimits
	}
	if len(doc.MetalLimits) == 0 {
		doc.MetalLimits = DefaultMetalLimits
	}
	return NewStandards(doc.HPILimits, doc.MetalLimits, StandardsOptions{
		ZeroMetalPolicy:       doc.ZeroMetalPolicy,
		IndeterminateCategory: doc.IndeterminateCategory,
	})
}

// LoadStandards reads a standards file; an empty path yields the defaults.
func LoadStandards(path string) (*Standards, error) {
	if path == "" {
		return DefaultStandards(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read standards file: %w", err)
	}
	return ParseStandards(data)
}
