package handlers

import (
	"net/http"
	"strconv"

	"polymarket-relations/config"
	"polymarket-relations/models"
	"polymarket-relations/service"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for relationship reports.
type Handler struct {
	cfg     *config.Config
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		cfg:     cfg,
		service: svc,
	}
}

// report loads the latest report or writes the appropriate error response.
func (h *Handler) report(c *gin.Context) (*models.Report, bool) {
	report, err := h.service.LatestReport(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
		return nil, false
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis has completed yet"})
		return nil, false
	}
	return report, true
}

// GetRelationships returns the qualifying copy-trading edges, highest copy
// score first, each with all four score components.
func (h *Handler) GetRelationships(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}

	edges := report.Edges
	if limit := parseLimit(c); limit > 0 && limit < len(edges) {
		edges = edges[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"relationships": edges,
		"count":         len(edges),
		"generated_at":  report.Summary.GeneratedAt,
	})
}

// GetRoles returns the trader -> role mapping and network statistics.
func (h *Handler) GetRoles(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roles":        report.Roles,
		"network":      report.Network,
		"generated_at": report.Summary.GeneratedAt,
	})
}

// GetTraderRole returns one trader's role plus their edges in both directions.
func (h *Handler) GetTraderRole(c *gin.Context) {
	traderID := c.Param("id")
	report, ok := h.report(c)
	if !ok {
		return
	}

	role, known := report.Roles[traderID]
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "trader not in latest analysis"})
		return
	}

	var followers, follows []models.RelationshipEdge
	for _, e := range report.Edges {
		if e.Leader == traderID {
			followers = append(followers, e)
		}
		if e.Follower == traderID {
			follows = append(follows, e)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"trader_id": traderID,
		"role":      role,
		"followers": followers,
		"follows":   follows,
	})
}

// GetFrontRunOpportunities returns open opportunities, best score first.
func (h *Handler) GetFrontRunOpportunities(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}

	opportunities := report.Opportunities
	if limit := parseLimit(c); limit > 0 && limit < len(opportunities) {
		opportunities = opportunities[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"opportunities": opportunities,
		"count":         len(opportunities),
		"generated_at":  report.Summary.GeneratedAt,
	})
}

// GetCorrelations returns the screened pair correlations for auditing.
func (h *Handler) GetCorrelations(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}

	correlations := report.Correlations
	if limit := parseLimit(c); limit > 0 && limit < len(correlations) {
		correlations = correlations[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"correlations": correlations,
		"count":        len(correlations),
	})
}

// GetSummary returns the latest run summary.
func (h *Handler) GetSummary(c *gin.Context) {
	report, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary": report.Summary,
		"network": report.Network,
	})
}

// RunAnalysis triggers a synchronous recompute over the current snapshot.
func (h *Handler) RunAnalysis(c *gin.Context) {
	report, err := h.service.RunAnalysis(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": report.Summary})
}

func parseLimit(c *gin.Context) int {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return 0
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
