package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/groundwater-hpi/internal/models"
	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
)

// Chunking limits for bulk scoring.
const (
	DefaultChunkSize = 100
	MinChunkSize     = 1
	MaxChunkSize     = 1000
)

// Reasons a row is left out of a bulk import.
const (
	SkipNoHPI              = "no_hpi"
	SkipMissingCoordinates = "missing_coordinates"
)

var ErrInvalidChunkSize = errors.New("chunk size must be between 1 and 1000")

var (
	sampleIDColumns = []string{"S. No.", "Sample ID", "SampleID", "sample_id", "sampleId"}
	villageColumns  = []string{"Location", "Village"}
)

// Skip records why a row was not imported. Row is 1-based.
type Skip struct {
	Row      int    `json:"row"`
	SampleID string `json:"sampleId"`
	Location string `json:"location,omitempty"`
	Reason   string `json:"reason"`
}

// Report is the outcome of a bulk run. Samples keep input order.
type Report struct {
	Total   int             `json:"total"`
	Samples []models.Sample `json:"-"`
	Skipped []Skip          `json:"skipped"`
}

// Options tunes a Pipeline.
type Options struct {
	Workers            int
	ChunkSize          int
	RequireCoordinates bool
	Logger             *zap.Logger
	// NewID generates identifiers for rows without one.
	NewID func() string
	Now   func() time.Time
}

// Pipeline normalizes and scores lab export rows in parallel chunks.
type Pipeline struct {
	normalizer    *quality.Normalizer
	calc          *quality.Calculator
	workers       int
	chunkSize     int
	requireCoords bool
	log           *zap.Logger
	newID         func() string
	now           func() time.Time
}

// NewPipeline wires a pipeline; zero options select the defaults.
func NewPipeline(n *quality.Normalizer, calc *quality.Calculator, opts Options) (*Pipeline, error) {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkSize < MinChunkSize || opts.ChunkSize > MaxChunkSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, opts.ChunkSize)
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "SAMPLE-" + uuid.NewString() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if n == nil {
		n = quality.DefaultNormalizer()
	}
	if calc == nil {
		calc = quality.NewCalculator(nil)
	}

	return &Pipeline{
		normalizer:    n,
		calc:          calc,
		workers:       opts.Workers,
		chunkSize:     opts.ChunkSize,
		requireCoords: opts.RequireCoordinates,
		log:           opts.Logger,
		newID:         opts.NewID,
		now:           opts.Now,
	}, nil
}

type outcome struct {
	sample models.Sample
	reason string
}

// Run scores every row. Chunks are distributed over the worker pool and the
// results reassembled in input order. Cancelling ctx stops the submission of
// further chunks; chunks already running complete.
func (p *Pipeline) Run(ctx context.Context, rows []quality.RawRow) (Report, error) {
	report := Report{Total: len(rows)}
	if len(rows) == 0 {
		return report, nil
	}

	results := make([]outcome, len(rows))

	g := new(errgroup.Group)
	g.SetLimit(p.workers)

	chunks := 0
	for start := 0; start < len(rows); start += p.chunkSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+p.chunkSize, len(rows))
		chunks++
		g.Go(func() error {
			for i := start; i < end; i++ {
				sample, reason := p.Score(rows[i], i)
				results[i] = outcome{sample: sample, reason: reason}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("bulk scoring interrupted: %w", err)
	}

	report.Samples = make([]models.Sample, 0, len(rows))
	for i, res := range results {
		if res.reason != "" {
			report.Skipped = append(report.Skipped, Skip{
				Row:      i + 1,
				SampleID: res.sample.SampleID,
				Location: res.sample.Village,
				Reason:   res.reason,
			})
			p.log.Debug("skipping sample",
				zap.Int("row", i+1),
				zap.String("location", res.sample.Village),
				zap.String("reason", res.reason))
			continue
		}
		report.Samples = append(report.Samples, res.sample)
	}

	p.log.Info("bulk scoring finished",
		zap.Int("rows", report.Total),
		zap.Int("chunks", chunks),
		zap.Int("accepted", len(report.Samples)),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// Score builds and scores the sample for one row. A non-empty reason means
// the row must not be persisted.
func (p *Pipeline) Score(row quality.RawRow, index int) (models.Sample, string) {
	rec := p.normalizer.Normalize(row)
	res := p.calc.Compute(rec)
	lat, lon := quality.ResolveCoordinates(row)

	sample := models.Sample{
		SampleID:     firstValue(row, sampleIDColumns),
		State:        strings.TrimSpace(row["State"]),
		District:     strings.TrimSpace(row["District"]),
		Block:        strings.TrimSpace(row["Block"]),
		Village:      firstValue(row, villageColumns),
		Latitude:     lat,
		Longitude:    lon,
		SamplingDate: p.samplingDate(row["Year"]),
		WellType:     models.DefaultWellType,
		WaterQuality: rec.WaterQuality,
		Metals:       rec.Metals,
	}
	if sample.SampleID == "" {
		sample.SampleID = p.newID()
	}
	sample.ApplyIndices(res)

	switch {
	case res.Indeterminate():
		return sample, SkipNoHPI
	case p.requireCoords && !sample.HasCoordinates():
		return sample, SkipMissingCoordinates
	}
	return sample, ""
}

func (p *Pipeline) samplingDate(year string) *time.Time {
	if y, err := strconv.Atoi(strings.TrimSpace(year)); err == nil && y > 0 {
		t := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}
	t := p.now().UTC()
	return &t
}

func firstValue(row quality.RawRow, columns []string) string {
	for _, c := range columns {
		if v := strings.TrimSpace(row[c]); v != "" && v != quality.NoReading {
			return v
		}
	}
	return ""
}
