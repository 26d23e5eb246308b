package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yuzukaze/aeris/internal/analytics"
	"github.com/yuzukaze/aeris/internal/importer"
)

func (s *Server) handleHealthz(c *gin.Context) {
	hasData, err := s.svc.HasData(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "store unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "has_data": hasData})
}

func (s *Server) handleInitSchema(c *gin.Context) {
	if err := s.svc.InitSchema(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "initialized"})
}

func (s *Server) handleImport(c *gin.Context) {
	days, ok := s.queryDays(c, s.cfg.ImportDays)
	if !ok {
		return
	}

	summary, err := s.svc.Import(c.Request.Context(), days)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleMostPolluted(c *gin.Context) {
	ranking, err := s.svc.MostPolluted(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ranking)
}

func (s *Server) handleAverage(c *gin.Context) {
	country := strings.ToUpper(c.Param("country"))
	days, ok := s.queryDays(c, s.cfg.AverageDays)
	if !ok {
		return
	}

	result, err := s.svc.Average(c.Request.Context(), country, days)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !result.HasData() {
		c.JSON(http.StatusOK, gin.H{"country": country, "days": days, "message": "no data for window"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleMeasurementsByCity(c *gin.Context) {
	country := strings.ToUpper(c.Param("country"))

	cities, err := s.svc.MeasurementsByCity(c.Request.Context(), country)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"country": country, "cities": cities})
}

// queryDays parses an optional ?days= parameter, falling back to def.
// A malformed value writes a 400 and reports false.
func (s *Server) queryDays(c *gin.Context, def int) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return def, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
		return 0, false
	}
	return days, true
}

// fail maps domain errors onto status codes. Validation failures are
// client errors; everything else is a 500 with the detail logged, not
// leaked.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, importer.ErrDaysOutOfRange),
		errors.Is(err, analytics.ErrUnknownCountry),
		errors.Is(err, analytics.ErrInvalidDayCount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
