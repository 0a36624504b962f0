package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tradebook/internal/actor"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	settlementdomain "github.com/smallbiznis/tradebook/internal/settlement/domain"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
)

type orderReasonRequest struct {
	Reason string `json:"reason"`
}

type settleOrderRequest struct {
	Lines []settlementdomain.ShippedLine `json:"lines"`
}

func (s *Server) PlaceOrder(c *gin.Context) {
	by, ok := requireActor(c)
	if !ok {
		return
	}
	var req orderdomain.PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Actor = by

	resp, err := s.orderSvc.Place(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Side           string `form:"side"`
		Status         string `form:"status"`
		Phase          string `form:"phase"`
		CounterpartyID string `form:"counterparty_id"`
		PlacedFrom     string `form:"placed_from"`
		PlacedTo       string `form:"placed_to"`
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
	placedFrom, err := parseOptionalTime(query.PlacedFrom, false, s.loc)
	if err != nil {
		AbortWithError(c, newValidationError("placed_from", "invalid_placed_from", "invalid placed_from"))
		return
	}
	placedTo, err := parseOptionalTime(query.PlacedTo, true, s.loc)
	if err != nil {
		AbortWithError(c, newValidationError("placed_to", "invalid_placed_to", "invalid placed_to"))
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListRequest{
		Pagination: query.Pagination,
		ListFilter: orderdomain.ListFilter{
			Side:           orderdomain.Side(strings.TrimSpace(query.Side)),
			Status:         orderdomain.Status(strings.TrimSpace(query.Status)),
			Phase:          orderdomain.Phase(strings.TrimSpace(query.Phase)),
			CounterpartyID: counterpartyID,
			PlacedFrom:     placedFrom,
			PlacedTo:       placedTo,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrder(c *gin.Context) {
	resp, err := s.orderSvc.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmOrder(c *gin.Context) {
	s.transitionOrder(c, func(number string, by actor.Actor, _ string) (orderdomain.Order, error) {
		return s.orderSvc.Confirm(c.Request.Context(), number, by)
	})
}

func (s *Server) PendOrder(c *gin.Context) {
	s.transitionOrder(c, func(number string, by actor.Actor, reason string) (orderdomain.Order, error) {
		return s.orderSvc.Pend(c.Request.Context(), number, by, reason)
	})
}

func (s *Server) ResumeOrder(c *gin.Context) {
	s.transitionOrder(c, func(number string, by actor.Actor, _ string) (orderdomain.Order, error) {
		return s.orderSvc.Resume(c.Request.Context(), number, by)
	})
}

func (s *Server) RejectOrder(c *gin.Context) {
	s.transitionOrder(c, func(number string, by actor.Actor, reason string) (orderdomain.Order, error) {
		return s.orderSvc.Reject(c.Request.Context(), number, by, reason)
	})
}

func (s *Server) CancelOrder(c *gin.Context) {
	s.transitionOrder(c, func(number string, by actor.Actor, reason string) (orderdomain.Order, error) {
		return s.orderSvc.Cancel(c.Request.Context(), number, by, reason)
	})
}

// transitionOrder accepts an empty body; reason is optional.
func (s *Server) transitionOrder(c *gin.Context, fn func(number string, by actor.Actor, reason string) (orderdomain.Order, error)) {
	by, ok := requireActor(c)
	if !ok {
		return
	}
	var req orderReasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := fn(c.Param("number"), by, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SettleOrder ships the order as ordered when the body carries no lines.
func (s *Server) SettleOrder(c *gin.Context) {
	by, ok := requireActor(c)
	if !ok {
		return
	}
	var req settleOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.settlementSvc.Settle(c.Request.Context(), settlementdomain.SettleRequest{
		OrderNumber: c.Param("number"),
		Lines:       req.Lines,
		Actor:       by,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
