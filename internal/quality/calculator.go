package quality

import "errors"

// ErrNoUsableMeasurements marks a record whose HPI is indeterminate. Such
// records are never persisted.
var ErrNoUsableMeasurements = errors.New("no usable measurements for HPI")

// Category is the safety class derived from HPI.
type Category string

const (
	CategorySafe     Category = "safe"
	CategoryModerate Category = "moderate"
	CategoryUnsafe   Category = "unsafe"
	// CategoryIndeterminate is only produced when the standards are
	// configured to report missing HPI explicitly.
	CategoryIndeterminate Category = "indeterminate"
)

// HPI thresholds for the category bands.
const (
	ModerateHPI = 100.0
	UnsafeHPI   = 200.0
)

// IndexResult holds the indices of one record. HPI is nil when no HPI
// parameter was measured; MI and CD are 0 when no metal was measured.
type IndexResult struct {
	HPI      *float64 `json:"hpi"`
	MI       float64  `json:"mi"`
	CD       float64  `json:"cd"`
	Category Category `json:"category"`
}

// Indeterminate reports whether HPI could not be computed. The category of
// such a result carries no evidence of safety.
func (r IndexResult) Indeterminate() bool {
	return r.HPI == nil
}

// NoMeasurements reports whether the record contributed nothing to any index.
func (r IndexResult) NoMeasurements() bool {
	return r.HPI == nil && r.MI == 0 && r.CD == 0
}

// Calculator scores canonical records against a Standards value. It holds
// no mutable state and is safe for concurrent use.
type Calculator struct {
	std *Standards
}

// NewCalculator returns a Calculator for std; nil selects DefaultStandards.
func NewCalculator(std *Standards) *Calculator {
	if std == nil {
		std = DefaultStandards()
	}
	return &Calculator{std: std}
}

// Standards returns the tables the calculator scores against.
func (c *Calculator) Standards() *Standards {
	return c.std
}

// Compute returns HPI, MI, CD and the category of rec.
func (c *Calculator) Compute(rec CanonicalRecord) IndexResult {
	hpi := c.HPI(rec.WaterQuality)
	mi, cd := c.MetalIndices(rec.Metals)
	return IndexResult{
		HPI:      hpi,
		MI:       mi,
		CD:       cd,
		Category: c.Classify(hpi),
	}
}

// HPI computes the weighted heavy metal pollution index over the measured
// HPI parameters. Unmeasured parameters drop out of both numerator and
// denominator.
func (c *Calculator) HPI(wq WaterQuality) *float64 {
	var numerator, denominator float64
	for _, w := range c.std.hpi {
		v := wq.Get(w.Name)
		if !usable(v) {
			continue
		}
		qi := (*v / w.Limit) * 100
		numerator += qi * w.Weight
		denominator += w.Weight
	}
	if denominator <= 0 {
		return nil
	}
	hpi := round3(numerator / denominator)
	return &hpi
}

// MetalIndices computes the metal index (mean ratio) and contamination
// degree (summed ratio) over the measured metals.
func (c *Calculator) MetalIndices(m Metals) (mi, cd float64) {
	var sum float64
	var count int
	for _, l := range c.std.metals {
		v := m.Get(l.Name)
		if !usable(v) {
			continue
		}
		if *v == 0 && c.std.zeroMetals == ZeroMetalExclude {
			continue
		}
		sum += *v / l.Value
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return round3(sum / float64(count)), round3(sum)
}

// Classify maps an HPI onto a category using the configured category for a
// missing HPI.
func (c *Calculator) Classify(hpi *float64) Category {
	if hpi == nil {
		return c.std.indeterminateCategory
	}
	return ClassifyHPI(hpi)
}

// ClassifyHPI maps an HPI onto a category. A nil HPI is reported as safe,
// which only means no contamination was evidenced.
func ClassifyHPI(hpi *float64) Category {
	switch {
	case hpi == nil:
		return CategorySafe
	case *hpi >= UnsafeHPI:
		return CategoryUnsafe
	case *hpi >= ModerateHPI:
		return CategoryModerate
	default:
		return CategorySafe
	}
}

// Severity orders categories from least to most severe; indeterminate ranks
// with safe.
func (c Category) Severity() int {
	switch c {
	case CategoryModerate:
		return 1
	case CategoryUnsafe:
		return 2
	}
	return 0
}
