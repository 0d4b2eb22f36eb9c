package ui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wastedash/internal/chart"
	"wastedash/internal/errors"
	"wastedash/internal/markers"
	"wastedash/internal/pipeline"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListViews(c *gin.Context) {
	list := s.views.Views()
	c.JSON(http.StatusOK, gin.H{
		"views": list,
		"count": len(list),
	})
}

func (s *Server) handleFacets(c *gin.Context) {
	id := c.Param("id")
	spec, err := s.views.View(id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	facets, err := s.views.Facets(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":   spec,
		"facets": facets,
	})
}

func (s *Server) handleRecords(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	records, err := s.views.Records(c.Request.Context(), c.Param("id"), sel)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":    c.Param("id"),
		"records": records,
		"count":   len(records),
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	groupBy, ok := pipeline.ParseGroupBy(c.Query("group_by"))
	if !ok {
		s.respondError(c, errors.InvalidInput(fmt.Sprintf("group_by %q must be category or year", c.Query("group_by"))))
		return
	}
	summary, err := s.views.Summary(c.Request.Context(), c.Param("id"), sel, groupBy)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":     c.Param("id"),
		"group_by": groupBy.String(),
		"summary":  summary,
	})
}

func (s *Server) handlePivot(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	grid, err := s.views.Pivot(c.Request.Context(), c.Param("id"), sel)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":  c.Param("id"),
		"pivot": grid,
	})
}

func (s *Server) handleShares(c *gin.Context) {
	sel, err := parseSelection(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	year, shares, err := s.views.Shares(c.Request.Context(), c.Param("id"), sel)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":   c.Param("id"),
		"year":   year,
		"shares": shares,
	})
}

func (s *Server) handleChart(c *gin.Context) {
	kind, err := chart.ParseKind(c.Query("kind"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	sel, err := parseSelection(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	spec, err := s.views.View(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	records, err := s.views.Records(c.Request.Context(), spec.ID, sel)
	if err != nil {
		s.respondError(c, err)
		return
	}

	yLabel := spec.ValueLabel
	if spec.Unit != "" {
		yLabel = strings.TrimSpace(fmt.Sprintf("%s (%s)", yLabel, spec.Unit))
	}
	img, err := chart.Render(kind, records, chart.Options{Title: spec.Title, YLabel: yLabel})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

func (s *Server) handleProfile(c *gin.Context) {
	profile, err := s.views.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":    c.Param("id"),
		"profile": profile,
	})
}

func (s *Server) handleMarkers(c *gin.Context) {
	if s.markers == nil {
		s.respondError(c, errors.NotFound("marker source"))
		return
	}
	list, skipped, err := s.markers.Markers(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	if c.Query("format") == "geojson" {
		c.JSON(http.StatusOK, markers.ToGeoJSON(list))
		return
	}

	body := gin.H{
		"markers": list,
		"count":   len(list),
		"skipped": skipped,
	}
	if lat, lon, ok := markers.Center(list); ok {
		body["center"] = gin.H{"lat": lat, "lon": lon}
	}
	c.JSON(http.StatusOK, body)
}
