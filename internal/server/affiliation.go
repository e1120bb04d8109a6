package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	affiliationdomain "github.com/bemynet/marketplace/internal/affiliation/domain"
)

func (s *Server) ListSaleAffiliations(c *gin.Context) {
	resp, err := s.affiliationSvc.ListForSale(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSourceAffiliations(c *gin.Context) {
	var query struct {
		SourceType string `form:"source_type"`
		SourceID   string `form:"source_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affiliationSvc.ListForSource(c.Request.Context(), affiliationdomain.ListRequest{
		SourceType: strings.TrimSpace(query.SourceType),
		SourceID:   strings.TrimSpace(query.SourceID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAffiliationSummary(c *gin.Context) {
	var query struct {
		SourceType string `form:"source_type"`
		SourceID   string `form:"source_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affiliationSvc.Summarize(c.Request.Context(), affiliationdomain.SummaryRequest{
		SourceType: strings.TrimSpace(query.SourceType),
		SourceID:   strings.TrimSpace(query.SourceID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
