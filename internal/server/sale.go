package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	identitydomain "github.com/bemynet/marketplace/internal/identity/domain"
	"github.com/bemynet/marketplace/internal/providers/pdf"
	saledomain "github.com/bemynet/marketplace/internal/sale/domain"
	"github.com/bemynet/marketplace/pkg/db/pagination"
)

type initiateSaleRequest struct {
	ProductID    string `json:"product_id"`
	ClientID     string `json:"client_id"`
	CommercialID string `json:"commercial_id"`
	PartnerID    string `json:"partner_id"`
	PartnerCode  string `json:"partner_code"`
	Discount     int64  `json:"discount_minor"`
}

func (s *Server) InitiateSale(c *gin.Context) {
	var req initiateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.Initiate(c.Request.Context(), saledomain.InitiateSaleRequest{
		ProductID:    strings.TrimSpace(req.ProductID),
		ClientID:     strings.TrimSpace(req.ClientID),
		CommercialID: strings.TrimSpace(req.CommercialID),
		PartnerID:    strings.TrimSpace(req.PartnerID),
		PartnerCode:  strings.TrimSpace(req.PartnerCode),
		Discount:     req.Discount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSales(c *gin.Context) {
	var query struct {
		pagination.Pagination
		FreelanceID string `form:"freelance_id"`
		ClientID    string `form:"client_id"`
		Status      string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.List(c.Request.Context(), saledomain.ListSaleRequest{
		PageToken:   query.PageToken,
		PageSize:    int32(query.PageSize),
		FreelanceID: strings.TrimSpace(query.FreelanceID),
		ClientID:    strings.TrimSpace(query.ClientID),
		Status:      strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSaleByID(c *gin.Context) {
	resp, err := s.saleSvc.Get(c.Request.Context(), saledomain.GetSaleRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelSale(c *gin.Context) {
	resp, err := s.saleSvc.Cancel(c.Request.Context(), saledomain.CancelSaleRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type previewCommissionRequest struct {
	ProductID    string `json:"product_id"`
	CommercialID string `json:"commercial_id"`
	PartnerID    string `json:"partner_id"`
	Discount     int64  `json:"discount_minor"`
}

func (s *Server) PreviewCommission(c *gin.Context) {
	var req previewCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.Preview(c.Request.Context(), saledomain.PreviewRequest{
		ProductID:    strings.TrimSpace(req.ProductID),
		CommercialID: strings.TrimSpace(req.CommercialID),
		PartnerID:    strings.TrimSpace(req.PartnerID),
		Discount:     req.Discount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSaleReceipt(c *gin.Context) {
	if s.pdfProvider == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	ctx := c.Request.Context()
	sale, err := s.saleSvc.Get(ctx, saledomain.GetSaleRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sale.Status != saledomain.StatusPaid && sale.Status != saledomain.StatusRefunded {
		AbortWithError(c, saledomain.ErrInvalidTransition)
		return
	}

	product, err := s.identitySvc.GetProduct(ctx, identitydomain.GetRequest{ID: sale.ProductID.String()})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	freelance, err := s.identitySvc.GetUser(ctx, identitydomain.GetRequest{ID: sale.FreelanceID.String()})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	client, err := s.identitySvc.GetClient(ctx, identitydomain.GetRequest{ID: sale.ClientID.String()})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	datePaid := ""
	if sale.PaidAt != nil {
		datePaid = sale.PaidAt.Format("2006-01-02")
	}

	data := pdf.ReceiptData{
		ReceiptNumber: sale.ID.String(),
		DatePaid:      datePaid,
		PlatformName:  s.cfg.AppName,
		FreelanceName: freelance.Name,
		ClientName:    client.Name,
		ProductTitle:  product.Title,
		Currency:      sale.Currency,
		GrossAmount:   formatMinor(sale.GrossAmount, sale.Currency),
		FreelanceNet:  formatMinor(sale.FreelanceNet, sale.Currency),
		Lines: []pdf.ReceiptLine{
			{Label: "Platform fee", Rate: sale.PlatformRate.Percent(), Amount: formatMinor(sale.PlatformFee, sale.Currency)},
		},
	}
	if sale.CommercialID != nil {
		data.Lines = append(data.Lines, pdf.ReceiptLine{
			Label:  "Commercial commission",
			Rate:   sale.CommercialRate.Percent(),
			Amount: formatMinor(sale.CommercialCommission, sale.Currency),
		})
	}
	if sale.PartnerID != nil {
		data.Lines = append(data.Lines, pdf.ReceiptLine{
			Label:  "Partner commission",
			Rate:   sale.PartnerRate.Percent(),
			Amount: formatMinor(sale.PartnerCommission, sale.Currency),
		})
	}
	data.Lines = append(data.Lines, pdf.ReceiptLine{
		Label:  "Freelance net",
		Amount: formatMinor(sale.FreelanceNet, sale.Currency),
	})

	reader, err := s.pdfProvider.GenerateReceipt(ctx, data)
	if err != nil || reader == nil {
		AbortWithError(c, ErrInternal)
		return
	}

	doc, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, ErrInternal)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=receipt-%s.pdf", sale.ID.String()))
	c.Data(http.StatusOK, "application/pdf", doc)
}

// formatMinor renders minor units as a decimal string, e.g. 12345 EUR
// becomes "123.45 EUR".
func formatMinor(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}
