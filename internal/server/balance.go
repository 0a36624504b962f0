package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
)

func (s *Server) ListBalances(c *gin.Context) {
	side := balancedomain.Side(strings.TrimSpace(c.Query("side")))
	resp, err := s.balanceSvc.List(c.Request.Context(), side)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBalance(c *gin.Context) {
	counterpartyID, err := snowflake.ParseString(strings.TrimSpace(c.Param("counterparty_id")))
	if err != nil || counterpartyID == 0 {
		AbortWithError(c, newValidationError("counterparty_id", "invalid_counterparty_id", "invalid counterparty_id"))
		return
	}
	side := balancedomain.Side(strings.TrimSpace(c.DefaultQuery("side", string(balancedomain.SideReceivable))))

	resp, err := s.balanceSvc.Get(c.Request.Context(), counterpartyID, side)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
