package models

import (
	"time"

	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
)

// DefaultWellType is recorded for samples ingested from lab exports.
const DefaultWellType = "Groundwater"

// Indices are the pollution indices stored with a sample.
type Indices struct {
	HPI *float64 `json:"hpi"`
	MI  float64  `json:"mi"`
	CD  float64  `json:"cd"`
}

// Sample is a scored groundwater sample as persisted and served by the API.
type Sample struct {
	ID           int64                `json:"id,omitempty"`
	SampleID     string               `json:"sampleId"`
	State        string               `json:"state"`
	District     string               `json:"district"`
	Block        string               `json:"block"`
	Village      string               `json:"village"`
	Latitude     float64              `json:"latitude"`
	Longitude    float64              `json:"longitude"`
	SamplingDate *time.Time           `json:"samplingDate,omitempty"`
	WellType     string               `json:"wellType"`
	WaterQuality quality.WaterQuality `json:"waterQuality"`
	Metals       quality.Metals       `json:"metals"`
	Indices      Indices              `json:"indices"`
	Category     quality.Category     `json:"category"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// Record returns the canonical part of the sample.
func (s Sample) Record() quality.CanonicalRecord {
	return quality.CanonicalRecord{WaterQuality: s.WaterQuality, Metals: s.Metals}
}

// ApplyIndices stores a calculator result on the sample.
func (s *Sample) ApplyIndices(res quality.IndexResult) {
	s.Indices = Indices{HPI: res.HPI, MI: res.MI, CD: res.CD}
	s.Category = res.Category
}

// HasCoordinates reports whether the sample can be placed on a map.
func (s Sample) HasCoordinates() bool {
	return quality.HasCoordinates(s.Latitude, s.Longitude)
}

// SampleFilter narrows sample listings.
type SampleFilter struct {
	SampleID string
	State    string
	District string
	Limit    int
}

// CategoryCount is the number of samples in one category.
type CategoryCount struct {
	Category quality.Category `json:"category"`
	Count    int              `json:"count"`
}

// Summary aggregates the stored samples.
type Summary struct {
	TotalSamples int             `json:"totalSamples"`
	Categories   []CategoryCount `json:"categories"`
	AvgHPI       *float64        `json:"avgHPI"`
	AvgMI        *float64        `json:"avgMI"`
	AvgCD        *float64        `json:"avgCD"`
}

// MapPoint is the minimal projection used by the map view.
type MapPoint struct {
	SampleID string           `json:"sampleId"`
	Lat      float64          `json:"lat"`
	Lng      float64          `json:"lng"`
	Category quality.Category `json:"category"`
	HPI      *float64         `json:"hpi"`
}

// TrendPoint holds the mean indices of the samples stored on one day.
type TrendPoint struct {
	Date   string   `json:"date"`
	AvgHPI *float64 `json:"avgHPI"`
	AvgMI  *float64 `json:"avgMI"`
	AvgCD  *float64 `json:"avgCD"`
}

// Locations lists the distinct administrative areas present in the store.
type Locations struct {
	States    []string `json:"states"`
	Districts []string `json:"districts"`
}

// Averages maps a parameter name to its mean over samples with a reading.
type Averages map[string]*float64
