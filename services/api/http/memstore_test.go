package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/02loveslollipop/groundwater-hpi/internal/models"
	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
	"github.com/02loveslollipop/groundwater-hpi/services/api/db"
)

// memStore is an in-memory SampleStore for handler tests.
type memStore struct {
	mu      sync.Mutex
	samples []models.Sample
	nextID  int64
	err     error
}

func newMemStore(samples ...models.Sample) *memStore {
	m := &memStore{}
	for i := range samples {
		_ = m.InsertSample(context.Background(), &samples[i])
	}
	return m
}

func (m *memStore) InsertSample(_ context.Context, sample *models.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	sample.ID = m.nextID
	sample.CreatedAt = time.Now().UTC()
	sample.UpdatedAt = sample.CreatedAt
	m.samples = append(m.samples, *sample)
	return nil
}

func (m *memStore) ReplaceAllSamples(ctx context.Context, samples []models.Sample) (int, error) {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return 0, m.err
	}
	m.samples = nil
	m.mu.Unlock()

	for i := range samples {
		if err := m.InsertSample(ctx, &samples[i]); err != nil {
			return 0, err
		}
	}
	return len(samples), nil
}

func (m *memStore) ListSamples(_ context.Context, filter models.SampleFilter) ([]models.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Sample, 0)
	for _, s := range m.samples {
		if filter.SampleID != "" && s.SampleID != filter.SampleID {
			continue
		}
		if filter.State != "" && s.State != filter.State {
			continue
		}
		if filter.District != "" && s.District != filter.District {
			continue
		}
		out = append(out, s)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) GetSample(_ context.Context, id int64) (models.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Sample{}, m.err
	}
	for _, s := range m.samples {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Sample{}, db.ErrSampleNotFound
}

func (m *memStore) UpdateSample(_ context.Context, sample *models.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.samples {
		if m.samples[i].ID == sample.ID {
			sample.UpdatedAt = time.Now().UTC()
			m.samples[i] = *sample
			return nil
		}
	}
	return db.ErrSampleNotFound
}

func (m *memStore) UpdateIndices(_ context.Context, samples []models.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, updated := range samples {
		for i := range m.samples {
			if m.samples[i].ID == updated.ID {
				m.samples[i].Indices = updated.Indices
				m.samples[i].Category = updated.Category
			}
		}
	}
	return nil
}

func (m *memStore) DeleteSample(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.samples {
		if m.samples[i].ID == id {
			m.samples = append(m.samples[:i], m.samples[i+1:]...)
			return nil
		}
	}
	return db.ErrSampleNotFound
}

func (m *memStore) Summary(_ context.Context) (models.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Summary{}, m.err
	}

	summary := models.Summary{TotalSamples: len(m.samples), Categories: []models.CategoryCount{}}
	counts := map[quality.Category]int{}
	var hpi, mi, cd []float64
	for _, s := range m.samples {
		counts[s.Category]++
		if s.Indices.HPI != nil {
			hpi = append(hpi, *s.Indices.HPI)
		}
		mi = append(mi, s.Indices.MI)
		cd = append(cd, s.Indices.CD)
	}
	for category, n := range counts {
		summary.Categories = append(summary.Categories, models.CategoryCount{Category: category, Count: n})
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Category < summary.Categories[j].Category
	})
	summary.AvgHPI, summary.AvgMI, summary.AvgCD = mean(hpi), mean(mi), mean(cd)
	return summary, nil
}

func (m *memStore) IndexTrend(_ context.Context) ([]models.TrendPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	type day struct{ hpi, mi, cd []float64 }
	days := map[string]*day{}
	for _, s := range m.samples {
		key := s.CreatedAt.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &day{}
			days[key] = d
		}
		if s.Indices.HPI != nil {
			d.hpi = append(d.hpi, *s.Indices.HPI)
		}
		d.mi = append(d.mi, s.Indices.MI)
		d.cd = append(d.cd, s.Indices.CD)
	}
	points := make([]models.TrendPoint, 0, len(days))
	for key, d := range days {
		points = append(points, models.TrendPoint{Date: key, AvgHPI: mean(d.hpi), AvgMI: mean(d.mi), AvgCD: mean(d.cd)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

func (m *memStore) MapPoints(_ context.Context) ([]models.MapPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	points := make([]models.MapPoint, 0)
	for _, s := range m.samples {
		if !s.HasCoordinates() {
			continue
		}
		points = append(points, models.MapPoint{SampleID: s.SampleID, Lat: s.Latitude, Lng: s.Longitude, Category: s.Category, HPI: s.Indices.HPI})
	}
	return points, nil
}

func (m *memStore) Locations(_ context.Context, state string) (models.Locations, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Locations{}, m.err
	}
	states, districts := map[string]bool{}, map[string]bool{}
	for _, s := range m.samples {
		if s.State != "" {
			states[s.State] = true
		}
		if s.District != "" && (state == "" || s.State == state) {
			districts[s.District] = true
		}
	}
	return models.Locations{States: sortedKeys(states), Districts: sortedKeys(districts)}, nil
}

func (m *memStore) WaterQualityAverages(_ context.Context) (models.Averages, error) {
	return m.averages(quality.WaterQualityParams, func(s models.Sample, name string) *float64 {
		return s.WaterQuality.Get(name)
	})
}

func (m *memStore) MetalAverages(_ context.Context) (models.Averages, error) {
	return m.averages(quality.MetalNames, func(s models.Sample, name string) *float64 {
		return s.Metals.Get(name)
	})
}

func (m *memStore) averages(names []string, get func(models.Sample, string) *float64) (models.Averages, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := models.Averages{}
	for _, name := range names {
		var values []float64
		for _, s := range m.samples {
			if v := get(s, name); v != nil {
				values = append(values, *v)
			}
		}
		out[name] = mean(values)
	}
	return out, nil
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
