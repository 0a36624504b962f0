package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
)

type createProductRequest struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	SupplierID string          `json:"supplier_id"`
	Unit       string          `json:"unit"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Create(c.Request.Context(), catalogdomain.CreateRequest(req))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	supplierID, err := parseOptionalSnowflakeID(c.Query("supplier_id"))
	if err != nil {
		AbortWithError(c, newValidationError("supplier_id", "invalid_supplier_id", "invalid supplier_id"))
		return
	}
	activeOnly, _ := strconv.ParseBool(c.Query("active_only"))

	resp, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListFilter{
		Category:   c.Query("category"),
		SupplierID: supplierID,
		ActiveOnly: activeOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProduct(c *gin.Context) {
	resp, err := s.catalogSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
