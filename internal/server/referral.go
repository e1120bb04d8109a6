package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	referraldomain "github.com/bemynet/marketplace/internal/referral/domain"
)

type createCommercialRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	RateBps int64  `json:"rate_bps"`
}

func (s *Server) CreateCommercial(c *gin.Context) {
	var req createCommercialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.referralSvc.CreateCommercial(c.Request.Context(), referraldomain.CreateCommercialRequest{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		RateBps: req.RateBps,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCommercialByID(c *gin.Context) {
	resp, err := s.referralSvc.GetCommercial(c.Request.Context(), referraldomain.GetRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createPartnerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	RateBps int64  `json:"rate_bps"`
}

func (s *Server) CreatePartner(c *gin.Context) {
	var req createPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.referralSvc.CreatePartner(c.Request.Context(), referraldomain.CreatePartnerRequest{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		RateBps: req.RateBps,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPartnerByID(c *gin.Context) {
	resp, err := s.referralSvc.GetPartner(c.Request.Context(), referraldomain.GetRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPartnerByCode(c *gin.Context) {
	resp, err := s.referralSvc.GetPartnerByCode(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
