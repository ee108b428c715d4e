package http

// registerV1Routes sets up the v1 API structure
// Groups: /api/v1 (engine), /api/v1/samples, /api/v1/distribution, /api/v1/export
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware()) // Add X-API-Version: v1 header
	if s.cfg.BearerToken != "" {
		v1.Use(bearerAuthMiddleware(s.cfg.BearerToken))
	}

	// Engine endpoints - no storage
	v1.POST("/indices", s.handleV1ComputeIndices)
	v1.POST("/normalize", s.handleV1Normalize)

	samples := v1.Group("/samples")
	{
		samples.GET("", s.handleV1ListSamples)
		samples.POST("", s.handleV1CreateSample)
		samples.POST("/upload", s.handleV1UploadSamples)
		samples.POST("/recompute", s.handleV1RecomputeSamples)
		samples.PUT("/by-sample-id/:sampleId", s.handleV1UpdateSampleBySampleID)
		samples.GET("/:id", s.handleV1GetSample)
		samples.PUT("/:id", s.handleV1UpdateSample)
		samples.DELETE("/:id", s.handleV1DeleteSample)
	}

	// Aggregates for dashboards
	v1.GET("/summary", s.handleV1Summary)
	v1.GET("/trends", s.handleV1Trends)
	v1.GET("/map", s.handleV1Map)
	v1.GET("/locations", s.handleV1Locations)

	distribution := v1.Group("/distribution")
	{
		distribution.GET("/water-quality", s.handleV1WaterQualityDistribution)
		distribution.GET("/metals", s.handleV1MetalDistribution)
	}

	export := v1.Group("/export")
	{
		export.GET("/csv", s.handleV1ExportCSV)
		export.GET("/xlsx", s.handleV1ExportXLSX)
	}
}
