package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/tradebook/internal/payment/domain"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
)

func (s *Server) RecordPayment(c *gin.Context) {
	by, ok := requireActor(c)
	if !ok {
		return
	}
	var req paymentdomain.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Actor = by

	resp, err := s.paymentSvc.RecordPayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Direction      string `form:"direction"`
		Method         string `form:"method"`
		CounterpartyID string `form:"counterparty_id"`
		From           string `form:"from"`
		To             string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	counterpartyID, err := parseOptionalSnowflakeID(query.CounterpartyID)
	if err != nil {
		AbortWithError(c, newValidationError("counterparty_id", "invalid_counterparty_id", "invalid counterparty_id"))
		return
	}
	from, err := parseOptionalTime(query.From, false, s.loc)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true, s.loc)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.ListRequest{
		Pagination: query.Pagination,
		ListFilter: paymentdomain.ListFilter{
			Direction:      paymentdomain.Direction(strings.TrimSpace(query.Direction)),
			Method:         paymentdomain.Method(strings.TrimSpace(query.Method)),
			CounterpartyID: counterpartyID,
			OccurredFrom:   from,
			OccurredTo:     to,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPayment(c *gin.Context) {
	resp, err := s.paymentSvc.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
