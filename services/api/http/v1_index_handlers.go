package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
)

// handleV1ComputeIndices scores a canonical record without storing it
// POST /api/v1/indices {"waterQuality": {...}, "metals": {...}}
func (s *Server) handleV1ComputeIndices(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}

	rec := s.normalizer.NormalizePayload(payload)
	res := s.calc.Compute(rec)

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"record":  rec,
			"indices": res,
		},
		"meta": gin.H{
			"indeterminate":  res.Indeterminate(),
			"noMeasurements": res.NoMeasurements(),
		},
	})
}

// handleV1Normalize maps one raw lab export row onto the canonical schema
// POST /api/v1/normalize {"F (mg/L)": "1.5", "As (ppb)": "-", ...}
func (s *Server) handleV1Normalize(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := quality.DecodeRawRow(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := s.normalizer.Normalize(row)
	lat, lon := quality.ResolveCoordinates(row)

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"record":    rec,
			"latitude":  lat,
			"longitude": lon,
			"indices":   s.calc.Compute(rec),
		},
	})
}
