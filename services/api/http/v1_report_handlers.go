package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/groundwater-hpi/internal/ingest"
	"github.com/02loveslollipop/groundwater-hpi/internal/models"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportBaseName  = "groundwater_samples"
)

// handleV1Summary returns totals, category counts and mean indices
// GET /api/v1/summary
func (s *Server) handleV1Summary(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	summary, err := s.store.Summary(ctx)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// handleV1Trends returns mean indices per storage day for charts
// GET /api/v1/trends
func (s *Server) handleV1Trends(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	points, err := s.store.IndexTrend(ctx)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": points,
		"meta": gin.H{
			"count": len(points),
		},
	})
}

// handleV1Map returns the located samples for the map view
// GET /api/v1/map
func (s *Server) handleV1Map(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	points, err := s.store.MapPoints(ctx)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": points,
		"meta": gin.H{
			"count": len(points),
		},
	})
}

// handleV1Locations returns distinct states and districts
// GET /api/v1/locations?state=Punjab
func (s *Server) handleV1Locations(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	loc, err := s.store.Locations(ctx, strings.TrimSpace(c.Query("state")))
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": loc})
}

// handleV1WaterQualityDistribution returns mean water quality readings
// GET /api/v1/distribution/water-quality
func (s *Server) handleV1WaterQualityDistribution(c *gin.Context) {
	s.respondAverages(c, s.store.WaterQualityAverages)
}

// handleV1MetalDistribution returns mean metal concentrations
// GET /api/v1/distribution/metals
func (s *Server) handleV1MetalDistribution(c *gin.Context) {
	s.respondAverages(c, s.store.MetalAverages)
}

func (s *Server) respondAverages(c *gin.Context, load func(context.Context) (models.Averages, error)) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	averages, err := load(ctx)
	if err != nil {
		s.storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": averages})
}

// handleV1ExportCSV downloads every stored sample as a results report
// GET /api/v1/export/csv
func (s *Server) handleV1ExportCSV(c *gin.Context) {
	s.export(c, ".csv", csvContentType, ingest.WriteResultsCSV)
}

// handleV1ExportXLSX downloads every stored sample as a workbook
// GET /api/v1/export/xlsx
func (s *Server) handleV1ExportXLSX(c *gin.Context) {
	s.export(c, ".xlsx", xlsxContentType, ingest.WriteResultsXLSX)
}

func (s *Server) export(c *gin.Context, ext, contentType string, write func(io.Writer, []models.Sample) error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	samples, err := s.store.ListSamples(ctx, models.SampleFilter{})
	if err != nil {
		s.storeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, samples); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportBaseName+ext+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
