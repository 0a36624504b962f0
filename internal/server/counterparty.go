package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	counterpartydomain "github.com/smallbiznis/tradebook/internal/counterparty/domain"
	"github.com/smallbiznis/tradebook/pkg/db/pagination"
)

type createCounterpartyRequest struct {
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Kind     string         `json:"kind"`
	Phone    string         `json:"phone"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) CreateCounterparty(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	var req createCounterpartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.counterpartySvc.Create(c.Request.Context(), counterpartydomain.CreateRequest{
		Code:     req.Code,
		Name:     req.Name,
		Kind:     counterpartydomain.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Phone:    req.Phone,
		Metadata: req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCounterparties(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Kind       string `form:"kind"`
		Name       string `form:"name"`
		ActiveOnly string `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	activeOnly, _ := strconv.ParseBool(query.ActiveOnly)

	resp, err := s.counterpartySvc.List(c.Request.Context(), counterpartydomain.ListRequest{
		Pagination: query.Pagination,
		Kind:       counterpartydomain.Kind(strings.TrimSpace(query.Kind)),
		Name:       query.Name,
		ActiveOnly: activeOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCounterparty(c *gin.Context) {
	resp, err := s.counterpartySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ActivateCounterparty(c *gin.Context) {
	s.setCounterpartyActive(c, true)
}

func (s *Server) DeactivateCounterparty(c *gin.Context) {
	s.setCounterpartyActive(c, false)
}

func (s *Server) setCounterpartyActive(c *gin.Context, active bool) {
	if _, ok := requireActor(c); !ok {
		return
	}
	resp, err := s.counterpartySvc.SetActive(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
