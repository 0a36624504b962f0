package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	paymentdomain "github.com/smallbiznis/tradebook/internal/payment/domain"
	reportdomain "github.com/smallbiznis/tradebook/internal/report/domain"
)

type rollupQuery struct {
	Side           string `form:"side"`
	From           string `form:"from"`
	To             string `form:"to"`
	GroupBy        string `form:"group_by"`
	CounterpartyID string `form:"counterparty_id"`
	Category       string `form:"category"`
	SupplierID     string `form:"supplier_id"`
	ProductID      string `form:"product_id"`
}

func (s *Server) RollupLedgers(c *gin.Context) {
	s.rollup(c, s.reportSvc.RollupLedgers)
}

func (s *Server) RollupOrders(c *gin.Context) {
	s.rollup(c, s.reportSvc.RollupOrders)
}

func (s *Server) rollup(c *gin.Context, fn func(context.Context, reportdomain.RollupRequest) (reportdomain.Rollup, error)) {
	var query rollupQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req, err := s.parseRollupQuery(query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := fn(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) parseRollupQuery(query rollupQuery) (reportdomain.RollupRequest, error) {
	from, to, err := parseRange(query.From, query.To, s.loc)
	if err != nil {
		return reportdomain.RollupRequest{}, err
	}
	counterpartyID, err := parseOptionalSnowflakeID(query.CounterpartyID)
	if err != nil {
		return reportdomain.RollupRequest{}, newValidationError("counterparty_id", "invalid_counterparty_id", "invalid counterparty_id")
	}
	supplierID, err := parseOptionalSnowflakeID(query.SupplierID)
	if err != nil {
		return reportdomain.RollupRequest{}, newValidationError("supplier_id", "invalid_supplier_id", "invalid supplier_id")
	}
	productID, err := parseOptionalSnowflakeID(query.ProductID)
	if err != nil {
		return reportdomain.RollupRequest{}, newValidationError("product_id", "invalid_product_id", "invalid product_id")
	}

	return reportdomain.RollupRequest{
		Side:           orderdomain.Side(strings.TrimSpace(query.Side)),
		From:           from,
		To:             to,
		CounterpartyID: counterpartyID,
		Category:       strings.TrimSpace(query.Category),
		SupplierID:     supplierID,
		ProductID:      productID,
		GroupBy:        reportdomain.GroupBy(strings.TrimSpace(query.GroupBy)),
	}, nil
}

func (s *Server) SummarizePayments(c *gin.Context) {
	from, to, err := parseRange(c.Query("from"), c.Query("to"), s.loc)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	counterpartyID, err := parseOptionalSnowflakeID(c.Query("counterparty_id"))
	if err != nil {
		AbortWithError(c, newValidationError("counterparty_id", "invalid_counterparty_id", "invalid counterparty_id"))
		return
	}

	resp, err := s.reportSvc.SummarizePayments(c.Request.Context(), reportdomain.PaymentSummaryRequest{
		Direction:      paymentdomain.Direction(strings.TrimSpace(c.Query("direction"))),
		From:           from,
		To:             to,
		CounterpartyID: counterpartyID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Statement(c *gin.Context) {
	start, end, err := parseRange(c.Query("from"), c.Query("to"), s.loc)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	counterpartyID, err := snowflake.ParseString(strings.TrimSpace(c.Query("counterparty_id")))
	if err != nil || counterpartyID == 0 {
		AbortWithError(c, newValidationError("counterparty_id", "invalid_counterparty_id", "invalid counterparty_id"))
		return
	}

	resp, err := s.reportSvc.Statement(c.Request.Context(), reportdomain.StatementRequest{
		CounterpartyID: counterpartyID,
		Side:           orderdomain.Side(strings.TrimSpace(c.DefaultQuery("side", string(orderdomain.SideSales)))),
		Start:          start,
		End:            end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
