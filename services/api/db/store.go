package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/groundwater-hpi/internal/models"
	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
)

// ErrSampleNotFound is returned when no sample has the requested id.
var ErrSampleNotFound = errors.New("sample not found")

// insertBatchSize bounds the number of queued statements per pgx batch.
const insertBatchSize = 500

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS groundwater`,
	`CREATE TABLE IF NOT EXISTS groundwater.samples (
    id            BIGSERIAL PRIMARY KEY,
    sample_id     TEXT NOT NULL,
    state         TEXT NOT NULL DEFAULT '',
    district      TEXT NOT NULL DEFAULT '',
    block         TEXT NOT NULL DEFAULT '',
    village       TEXT NOT NULL DEFAULT '',
    latitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
    longitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
    sampling_date TIMESTAMPTZ,
    well_type     TEXT NOT NULL DEFAULT 'Groundwater',
    water_quality JSONB NOT NULL DEFAULT '{}'::jsonb,
    metals        JSONB NOT NULL DEFAULT '{}'::jsonb,
    hpi           DOUBLE PRECISION,
    mi            DOUBLE PRECISION NOT NULL DEFAULT 0,
    cd            DOUBLE PRECISION NOT NULL DEFAULT 0,
    category      TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS samples_state_district_idx ON groundwater.samples (state, district)`,
	`CREATE INDEX IF NOT EXISTS samples_category_idx ON groundwater.samples (category)`,
}

// EnsureSchema creates the samples table and its indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const sampleColumns = `id, sample_id, state, district, block, village, latitude, longitude,
    sampling_date, well_type, water_quality, metals, hpi, mi, cd, category, created_at, updated_at`

const insertSampleSQL = `
    INSERT INTO groundwater.samples (sample_id, state, district, block, village, latitude, longitude,
        sampling_date, well_type, water_quality, metals, hpi, mi, cd, category)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    RETURNING id, created_at, updated_at
`

func sampleArgs(sample *models.Sample) ([]any, error) {
	wq, err := json.Marshal(sample.WaterQuality)
	if err != nil {
		return nil, fmt.Errorf("encode water quality: %w", err)
	}
	metals, err := json.Marshal(sample.Metals)
	if err != nil {
		return nil, fmt.Errorf("encode metals: %w", err)
	}
	wellType := sample.WellType
	if wellType == "" {
		wellType = models.DefaultWellType
	}
	return []any{
		sample.SampleID,
		sample.State,
		sample.District,
		sample.Block,
		sample.Village,
		sample.Latitude,
		sample.Longitude,
		sample.SamplingDate,
		wellType,
		wq,
		metals,
		sample.Indices.HPI,
		sample.Indices.MI,
		sample.Indices.CD,
		string(sample.Category),
	}, nil
}

// InsertSample stores a single sample and fills its id and timestamps.
func (s *Store) InsertSample(ctx context.Context, sample *models.Sample) error {
	args, err := sampleArgs(sample)
	if err != nil {
		return err
	}
	return s.pool.QueryRow(ctx, insertSampleSQL, args...).Scan(&sample.ID, &sample.CreatedAt, &sample.UpdatedAt)
}

// ReplaceAllSamples deletes every stored sample and inserts the given ones
// in a single transaction. It returns the number of inserted rows.
func (s *Store) ReplaceAllSamples(ctx context.Context, samples []models.Sample) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM groundwater.samples`); err != nil {
		return 0, fmt.Errorf("clear samples: %w", err)
	}

	for start := 0; start < len(samples); start += insertBatchSize {
		end := min(start+insertBatchSize, len(samples))
		if err := insertBatch(ctx, tx, samples[start:end]); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(samples), nil
}

func insertBatch(ctx context.Context, tx pgx.Tx, samples []models.Sample) error {
	batch := &pgx.Batch{}
	for i := range samples {
		args, err := sampleArgs(&samples[i])
		if err != nil {
			return err
		}
		batch.Queue(insertSampleSQL, args...)
	}

	res := tx.SendBatch(ctx, batch)
	defer res.Close()

	for i := range samples {
		if err := res.QueryRow().Scan(&samples[i].ID, &samples[i].CreatedAt, &samples[i].UpdatedAt); err != nil {
			return fmt.Errorf("insert sample %q: %w", samples[i].SampleID, err)
		}
	}
	return nil
}

func scanSample(row pgx.Row) (models.Sample, error) {
	var (
		sample   models.Sample
		wq       []byte
		metals   []byte
		category string
	)
	if err := row.Scan(
		&sample.ID,
		&sample.SampleID,
		&sample.State,
		&sample.District,
		&sample.Block,
		&sample.Village,
		&sample.Latitude,
		&sample.Longitude,
		&sample.SamplingDate,
		&sample.WellType,
		&wq,
		&metals,
		&sample.Indices.HPI,
		&sample.Indices.MI,
		&sample.Indices.CD,
		&category,
		&sample.CreatedAt,
		&sample.UpdatedAt,
	); err != nil {
		return sample, err
	}
	sample.Category = quality.Category(category)
	if len(wq) > 0 {
		if err := json.Unmarshal(wq, &sample.WaterQuality); err != nil {
			return sample, fmt.Errorf("decode water quality: %w", err)
		}
	}
	if len(metals) > 0 {
		if err := json.Unmarshal(metals, &sample.Metals); err != nil {
			return sample, fmt.Errorf("decode metals: %w", err)
		}
	}
	return sample, nil
}

// ListSamples returns samples matching the filter ordered by id. A zero
// limit returns every match.
func (s *Store) ListSamples(ctx context.Context, filter models.SampleFilter) ([]models.Sample, error) {
	conditions := []string{}
	args := []any{}

	if filter.SampleID != "" {
		args = append(args, filter.SampleID)
		conditions = append(conditions, "sample_id = $"+strconv.Itoa(len(args)))
	}
	if filter.State != "" {
		args = append(args, filter.State)
		conditions = append(conditions, "state = $"+strconv.Itoa(len(args)))
	}
	if filter.District != "" {
		args = append(args, filter.District)
		conditions = append(conditions, "district = $"+strconv.Itoa(len(args)))
	}

	query := strings.Builder{}
	query.WriteString("SELECT " + sampleColumns + " FROM groundwater.samples")
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make([]models.Sample, 0)
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// GetSample returns one sample by id.
func (s *Store) GetSample(ctx context.Context, id int64) (models.Sample, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+sampleColumns+" FROM groundwater.samples WHERE id = $1", id)
	sample, err := scanSample(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return sample, ErrSampleNotFound
	}
	return sample, err
}

const updateSampleSQL = `
    UPDATE groundwater.samples
    SET sample_id = $2, state = $3, district = $4, block = $5, village = $6, latitude = $7,
        longitude = $8, sampling_date = $9, well_type = $10, water_quality = $11, metals = $12,
        hpi = $13, mi = $14, cd = $15, category = $16, updated_at = NOW()
    WHERE id = $1
    RETURNING created_at, updated_at
`

// UpdateSample overwrites the stored sample with the same id.
func (s *Store) UpdateSample(ctx context.Context, sample *models.Sample) error {
	args, err := sampleArgs(sample)
	if err != nil {
		return err
	}
	args = append([]any{sample.ID}, args...)
	err = s.pool.QueryRow(ctx, updateSampleSQL, args...).Scan(&sample.CreatedAt, &sample.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSampleNotFound
	}
	return err
}

const updateIndicesSQL = `
    UPDATE groundwater.samples
    SET hpi = $2, mi = $3, cd = $4, category = $5, updated_at = NOW()
    WHERE id = $1
`

// UpdateIndices rewrites the stored indices of the given samples.
func (s *Store) UpdateIndices(ctx context.Context, samples []models.Sample) error {
	for start := 0; start < len(samples); start += insertBatchSize {
		end := min(start+insertBatchSize, len(samples))
		chunk := samples[start:end]

		batch := &pgx.Batch{}
		for _, sample := range chunk {
			batch.Queue(updateIndicesSQL, sample.ID, sample.Indices.HPI, sample.Indices.MI, sample.Indices.CD, string(sample.Category))
		}

		res := s.pool.SendBatch(ctx, batch)
		for range chunk {
			if _, err := res.Exec(); err != nil {
				res.Close()
				return err
			}
		}
		if err := res.Close(); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSample removes one sample by id.
func (s *Store) DeleteSample(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM groundwater.samples WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSampleNotFound
	}
	return nil
}

const summaryTotalsSQL = `
    SELECT COUNT(*), AVG(hpi), AVG(mi), AVG(cd)
    FROM groundwater.samples
`

const summaryCategoriesSQL = `
    SELECT category, COUNT(*)
    FROM groundwater.samples
    GROUP BY category
    ORDER BY category
`

// Summary aggregates totals, per-category counts and mean indices. HPI is
// averaged over samples that have one.
func (s *Store) Summary(ctx context.Context) (models.Summary, error) {
	var summary models.Summary
	if err := s.pool.QueryRow(ctx, summaryTotalsSQL).Scan(
		&summary.TotalSamples,
		&summary.AvgHPI,
		&summary.AvgMI,
		&summary.AvgCD,
	); err != nil {
		return summary, err
	}

	rows, err := s.pool.Query(ctx, summaryCategoriesSQL)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	summary.Categories = make([]models.CategoryCount, 0)
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return summary, err
		}
		summary.Categories = append(summary.Categories, models.CategoryCount{Category: quality.Category(category), Count: count})
	}
	return summary, rows.Err()
}

const indexTrendSQL = `
    SELECT to_char(created_at::date, 'YYYY-MM-DD') AS day, AVG(hpi), AVG(mi), AVG(cd)
    FROM groundwater.samples
    GROUP BY day
    ORDER BY day
`

// IndexTrend returns the mean indices per day samples were stored.
func (s *Store) IndexTrend(ctx context.Context) ([]models.TrendPoint, error) {
	rows, err := s.pool.Query(ctx, indexTrendSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]models.TrendPoint, 0)
	for rows.Next() {
		var p models.TrendPoint
		if err := rows.Scan(&p.Date, &p.AvgHPI, &p.AvgMI, &p.AvgCD); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

const mapPointsSQL = `
    SELECT sample_id, latitude, longitude, category, hpi
    FROM groundwater.samples
    WHERE latitude <> 0 AND longitude <> 0
    ORDER BY id
`

// MapPoints returns the samples that can be placed on a map.
func (s *Store) MapPoints(ctx context.Context) ([]models.MapPoint, error) {
	rows, err := s.pool.Query(ctx, mapPointsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]models.MapPoint, 0)
	for rows.Next() {
		var (
			p        models.MapPoint
			category string
		)
		if err := rows.Scan(&p.SampleID, &p.Lat, &p.Lng, &category, &p.HPI); err != nil {
			return nil, err
		}
		p.Category = quality.Category(category)
		points = append(points, p)
	}
	return points, rows.Err()
}

// Locations returns the distinct states and districts. When state is set,
// districts are limited to that state.
func (s *Store) Locations(ctx context.Context, state string) (models.Locations, error) {
	var loc models.Locations

	states, err := s.distinct(ctx, `SELECT DISTINCT state FROM groundwater.samples WHERE state <> '' ORDER BY state`)
	if err != nil {
		return loc, err
	}
	loc.States = states

	if state != "" {
		loc.Districts, err = s.distinct(ctx, `SELECT DISTINCT district FROM groundwater.samples WHERE district <> '' AND state = $1 ORDER BY district`, state)
	} else {
		loc.Districts, err = s.distinct(ctx, `SELECT DISTINCT district FROM groundwater.samples WHERE district <> '' ORDER BY district`)
	}
	return loc, err
}

func (s *Store) distinct(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

var (
	waterQualityAveragesSQL = averagesSQL("water_quality", quality.WaterQualityParams)
	metalAveragesSQL        = averagesSQL("metals", quality.MetalNames)
)

// averagesSQL builds one AVG per JSONB key; keys are canonical names, never
// user input.
func averagesSQL(column string, names []string) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("AVG((%s->>'%s')::double precision)", column, name)
	}
	return "SELECT " + strings.Join(parts, ", ") + " FROM groundwater.samples"
}

func (s *Store) averages(ctx context.Context, sql string, names []string) (models.Averages, error) {
	values := make([]*float64, len(names))
	dest := make([]any, len(names))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := s.pool.QueryRow(ctx, sql).Scan(dest...); err != nil {
		return nil, err
	}

	out := make(models.Averages, len(names))
	for i, name := range names {
		out[name] = values[i]
	}
	return out, nil
}

// WaterQualityAverages returns the mean of every water quality parameter.
func (s *Store) WaterQualityAverages(ctx context.Context) (models.Averages, error) {
	return s.averages(ctx, waterQualityAveragesSQL, quality.WaterQualityParams)
}

// MetalAverages returns the mean of every metal concentration.
func (s *Store) MetalAverages(ctx context.Context) (models.Averages, error) {
	return s.averages(ctx, metalAveragesSQL, quality.MetalNames)
}
