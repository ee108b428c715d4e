package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/02loveslollipop/groundwater-hpi/internal/ingest"
	"github.com/02loveslollipop/groundwater-hpi/internal/models"
	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
)

// sampleRequest is the body of sample create and update calls. Absent
// fields keep their stored value on update.
type sampleRequest struct {
	SampleID     string         `json:"sampleId"`
	State        string         `json:"state"`
	District     string         `json:"district"`
	Block        string         `json:"block"`
	Village      string         `json:"village"`
	Latitude     *float64       `json:"latitude"`
	Longitude    *float64       `json:"longitude"`
	SamplingDate *time.Time     `json:"samplingDate"`
	WellType     string         `json:"wellType"`
	WaterQuality map[string]any `json:"waterQuality"`
	Metals       map[string]any `json:"metals"`
}

func (r sampleRequest) apply(sample *models.Sample) {
	if r.SampleID != "" {
		sample.SampleID = r.SampleID
	}
	if r.State != "" {
		sample.State = r.State
	}
	if r.District != "" {
		sample.District = r.District
	}
	if r.Block != "" {
		sample.Block = r.Block
	}
	if r.Village != "" {
		sample.Village = r.Village
	}
	if r.Latitude != nil {
		sample.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		sample.Longitude = *r.Longitude
	}
	if r.SamplingDate != nil {
		sample.SamplingDate = r.SamplingDate
	}
	if r.WellType != "" {
		sample.WellType = r.WellType
	}
}

// record merges the request readings over base. A section present in the
// request replaces the stored one as a whole.
func (s *Server) record(r sampleRequest, base quality.CanonicalRecord) quality.CanonicalRecord {
	rec := base
	if r.WaterQuality != nil {
		rec.WaterQuality = s.normalizer.NormalizePayload(map[string]any{"waterQuality": r.WaterQuality}).WaterQuality
	}
	if r.Metals != nil {
		rec.Metals = s.normalizer.NormalizePayload(map[string]any{"metals": r.Metals}).Metals
	}
	return rec
}

// score computes indices for the sample. Samples without an HPI are refused.
func (s *Server) score(sample *models.Sample) error {
	res := s.calc.Compute(sample.Record())
	if res.Indeterminate() {
		return quality.ErrNoUsableMeasurements
	}
	sample.ApplyIndices(res)
	return nil
}

func parseSampleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sample id"})
		return 0, false
	}
	return id, true
}

// handleV1ListSamples returns stored samples
// GET /api/v1/samples?state=Punjab&district=Bathinda&limit=50
func (s *Server) handleV1ListSamples(c *gin.Context) {
	limit := s.cfg.DefaultLimit
	if l := c.Query("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil || val <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = val
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	samples, err := s.store.ListSamples(ctx, models.SampleFilter{
		State:    strings.TrimSpace(c.Query("state")),
		District: strings.TrimSpace(c.Query("district")),
		Limit:    limit,
	})
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": samples,
		"meta": gin.H{
			"count": len(samples),
			"limit": limit,
		},
	})
}

// handleV1CreateSample scores and stores one sample
// POST /api/v1/samples
func (s *Server) handleV1CreateSample(c *gin.Context) {
	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sample := models.Sample{WellType: models.DefaultWellType}
	req.apply(&sample)
	if sample.SampleID == "" {
		sample.SampleID = "SAMPLE-" + uuid.NewString()
	}
	if sample.SamplingDate == nil {
		now := time.Now().UTC()
		sample.SamplingDate = &now
	}
	rec := s.record(req, quality.CanonicalRecord{})
	sample.WaterQuality, sample.Metals = rec.WaterQuality, rec.Metals

	if err := s.score(&sample); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.store.InsertSample(ctx, &sample); err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": sample})
}

// handleV1GetSample returns one stored sample
// GET /api/v1/samples/:id
func (s *Server) handleV1GetSample(c *gin.Context) {
	id, ok := parseSampleID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sample, err := s.store.GetSample(ctx, id)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sample})
}

// handleV1UpdateSample edits a sample, recomputing indices when readings change
// PUT /api/v1/samples/:id
func (s *Server) handleV1UpdateSample(c *gin.Context) {
	id, ok := parseSampleID(c)
	if !ok {
		return
	}

	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sample, err := s.store.GetSample(ctx, id)
	if err != nil {
		s.storeError(c, err)
		return
	}

	s.updateSample(ctx, c, sample, req)
}

// handleV1UpdateSampleBySampleID edits the first sample carrying a lab sample id
// PUT /api/v1/samples/by-sample-id/:sampleId
func (s *Server) handleV1UpdateSampleBySampleID(c *gin.Context) {
	sampleID := strings.TrimSpace(c.Param("sampleId"))

	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	matches, err := s.store.ListSamples(ctx, models.SampleFilter{SampleID: sampleID, Limit: 1})
	if err != nil {
		s.storeError(c, err)
		return
	}
	if len(matches) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "sample '" + sampleID + "' not found"})
		return
	}

	s.updateSample(ctx, c, matches[0], req)
}

func (s *Server) updateSample(ctx context.Context, c *gin.Context, sample models.Sample, req sampleRequest) {
	req.apply(&sample)
	if req.WaterQuality != nil || req.Metals != nil {
		rec := s.record(req, sample.Record())
		sample.WaterQuality, sample.Metals = rec.WaterQuality, rec.Metals
		if err := s.score(&sample); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
	}

	if err := s.store.UpdateSample(ctx, &sample); err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sample})
}

// handleV1DeleteSample removes a sample
// DELETE /api/v1/samples/:id
func (s *Server) handleV1DeleteSample(c *gin.Context) {
	id, ok := parseSampleID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.store.DeleteSample(ctx, id); err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "deleted": true}})
}

// handleV1UploadSamples scores a lab export and replaces the stored samples
// POST /api/v1/samples/upload (multipart field "file", .csv or .xlsx)
func (s *Server) handleV1UploadSamples(c *gin.Context) {
	if c.Request.ContentLength > s.cfg.UploadMaxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.UploadMaxBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	rows, err := ingest.ReadRows(header.Filename, f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	report, err := s.pipeline.Run(ctx, rows)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(report.Samples) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "no valid samples in upload",
			"meta":  gin.H{"total": report.Total, "skipped": len(report.Skipped)},
		})
		return
	}

	inserted, err := s.store.ReplaceAllSamples(ctx, report.Samples)
	if err != nil {
		s.storeError(c, err)
		return
	}

	s.log.Info("samples replaced from upload",
		zap.String("file", header.Filename),
		zap.Int("inserted", inserted),
		zap.Int("skipped", len(report.Skipped)))

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"inserted":    inserted,
			"skippedRows": report.Skipped,
		},
		"meta": gin.H{
			"total":   report.Total,
			"skipped": len(report.Skipped),
		},
	})
}

// handleV1RecomputeSamples rescores every stored sample with the current standards
// POST /api/v1/samples/recompute
func (s *Server) handleV1RecomputeSamples(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	samples, err := s.store.ListSamples(ctx, models.SampleFilter{})
	if err != nil {
		s.storeError(c, err)
		return
	}

	changed := 0
	for i := range samples {
		before := samples[i].Category
		samples[i].ApplyIndices(s.calc.Compute(samples[i].Record()))
		if samples[i].Category != before {
			changed++
		}
	}

	if err := s.store.UpdateIndices(ctx, samples); err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"updated":         len(samples),
			"categoryChanges": changed,
		},
	})
}
