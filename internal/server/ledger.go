package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/tradebook/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
)

func (s *Server) ListLedgers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Side           string `form:"side"`
		Phase          string `form:"phase"`
		CounterpartyID string `form:"counterparty_id"`
		SettledFrom    string `form:"settled_from"`
		SettledTo      string `form:"settled_to"`
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
	settledFrom, err := parseOptionalTime(query.SettledFrom, false, s.loc)
	if err != nil {
		AbortWithError(c, newValidationError("settled_from", "invalid_settled_from", "invalid settled_from"))
		return
	}
	settledTo, err := parseOptionalTime(query.SettledTo, true, s.loc)
	if err != nil {
		AbortWithError(c, newValidationError("settled_to", "invalid_settled_to", "invalid settled_to"))
		return
	}

	resp, err := s.ledgerSvc.List(c.Request.Context(), ledgerdomain.ListRequest{
		Pagination: query.Pagination,
		ListFilter: ledgerdomain.ListFilter{
			Side:           orderdomain.Side(strings.TrimSpace(query.Side)),
			Phase:          orderdomain.Phase(strings.TrimSpace(query.Phase)),
			CounterpartyID: counterpartyID,
			SettledFrom:    settledFrom,
			SettledTo:      settledTo,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLedger(c *gin.Context) {
	resp, err := s.ledgerSvc.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
